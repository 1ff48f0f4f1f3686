package services

import (
	"cwms/src/models"
	"cwms/src/types"

	"gorm.io/gorm"
)

// Owner is the resolved side of an (owner_type, owner_id) pair. Exactly one
// of Member/User is set, matching Kind.
type Owner struct {
	Kind   types.OwnerKind
	Member *models.Member
	User   *models.User
}

func (o *Owner) ID() uint {
	if o.Member != nil {
		return o.Member.ID
	}
	if o.User != nil {
		return o.User.ID
	}
	return 0
}

func (o *Owner) Email() string {
	if o.Member != nil {
		return o.Member.Email
	}
	if o.User != nil {
		return o.User.Email
	}
	return ""
}

// ResolveOwner loads the entity behind an owner reference. The union is
// closed: anything but member|user is a validation error, not a reflection
// fallback.
func ResolveOwner(tx *gorm.DB, ref types.OwnerRef) (*Owner, error) {
	switch ref.Kind {
	case types.OWNER_MEMBER:
		var member models.Member
		if err := tx.
			Where(&models.Member{ID: ref.ID}).
			Preload("Subscriptions", "status IN (?)", []types.SubscriptionStatus{types.SUBSCRIPTION_ACTIVE, types.SUBSCRIPTION_EXPIRING}).
			First(&member).
			Error; err != nil {
			return nil, err
		}
		return &Owner{Kind: types.OWNER_MEMBER, Member: &member}, nil
	case types.OWNER_USER:
		var user models.User
		if err := tx.Where(&models.User{ID: ref.ID}).First(&user).Error; err != nil {
			return nil, err
		}
		return &Owner{Kind: types.OWNER_USER, User: &user}, nil
	}
	return nil, NewValidationError("owner", "unknown owner kind "+string(ref.Kind))
}
