package mailer

import (
	"cwms/src/lib"
	"fmt"
	"log"
	"os"
)

func from() (string, string) {
	addr := os.Getenv("MAIL_FROM")
	if addr == "" {
		addr = "noreply@cwms.local"
	}
	name := os.Getenv("MAIL_FROM_NAME")
	if name == "" {
		name = "CWMS"
	}
	return addr, name
}

func send(to, subject, body string) {
	addr, name := from()
	input := lib.SendMailInput{
		From:     addr,
		FromName: name,
		To:       []string{to},
		Subject:  subject,
		Body:     body,
	}
	if err := lib.SendMail(&input); err != nil {
		log.Printf("[mailer] Error sending %q to %s: %s\n", subject, to, err.Error())
	}
}

func SendBookingConfirmation(to, resourceName string, total float64, currency string) {
	body := fmt.Sprintf("Your booking for %s is confirmed. Total due: %.2f %s.", resourceName, total, currency)
	go send(to, "Booking confirmed", body)
}

func SendBookingCancellation(to, resourceName, reason string) {
	body := fmt.Sprintf("Your booking for %s has been cancelled.", resourceName)
	if reason != "" {
		body += " Reason: " + reason
	}
	go send(to, "Booking cancelled", body)
}

func SendSubscriptionExpiring(to, planName string, daysRemaining int) {
	body := fmt.Sprintf("Your %s subscription expires in %d day(s). Renew to keep your member benefits.", planName, daysRemaining)
	go send(to, "Subscription expiring soon", body)
}

func SendInvoice(to, number string, total float64, currency string) {
	body := fmt.Sprintf("Invoice %s has been issued for %.2f %s.", number, total, currency)
	go send(to, fmt.Sprintf("Invoice %s", number), body)
}

func SendApplicationDecision(to, startupName string, accepted bool, reason string) {
	subject := "Application update"
	var body string
	if accepted {
		body = fmt.Sprintf("Congratulations! %s has been accepted into the program.", startupName)
	} else {
		body = fmt.Sprintf("We're sorry, %s was not selected this time.", startupName)
		if reason != "" {
			body += " " + reason
		}
	}
	go send(to, subject, body)
}
