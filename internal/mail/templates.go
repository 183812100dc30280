package mail

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
)

//go:embed templates/*
var templateFS embed.FS

var (
	otpHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/otp.html"))
	otpText = template.Must(template.ParseFS(templateFS, "templates/otp.txt"))
)

type otpView struct {
	Heading string
	Intro   string
	Name    string
	Code    string
	Minutes int
}

// OTPMessage renders the one-time code email for the given slot purpose.
func OTPMessage(to, name, code string, purpose user.OTPPurpose, ttl time.Duration) (Message, error) {
	view := otpView{
		Name:    name,
		Code:    code,
		Minutes: int(ttl.Minutes()),
	}

	var subject string
	switch purpose {
	case user.PurposeReset:
		subject = "Password Reset Code"
		view.Heading = "Reset your password"
		view.Intro = "Use the code below to reset your password."
	default:
		subject = "Email Verification Code"
		view.Heading = "Verify your email"
		view.Intro = "Use the code below to finish creating your account."
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := otpHTML.Execute(&htmlBuf, view); err != nil {
		return Message{}, err
	}
	if err := otpText.Execute(&textBuf, view); err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}
