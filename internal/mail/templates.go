package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"year": func() int { return time.Now().Year() },
}).Parse(`
{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background: linear-gradient(to right, #3b82f6, #1d4ed8); padding: 20px; text-align: center;">
<h1 style="color: white; margin: 0;">{{.Title}}</h1>
</div>
<div style="background-color: #f9f9f9; padding: 20px; border-radius: 0 0 5px 5px;">
{{template "body" .}}
</div>
<p style="text-align: center; color: #888; font-size: 0.8em;">&copy; {{year}} InsightSphere. All rights reserved.</p>
</body>
</html>{{end}}
`))

var bodies = map[string]string{
	"verification": `<p>Hello {{.Name}},</p>
<p>Thank you for signing up! Your verification code is:</p>
<p style="text-align: center; font-size: 32px; font-weight: bold; letter-spacing: 5px; color: #3b82f6;">{{.Code}}</p>
<p>Enter this code on the verification page to complete your registration. It expires in 24 hours.</p>
<p>If you didn't create an account with us, please ignore this email.</p>`,
	"welcome": `<p>Hello {{.Name}},</p>
<p>Your email is verified and your InsightSphere account is ready. Start exploring stories from our writers.</p>`,
	"reset_request": `<p>Hello,</p>
<p>We received a request to reset your password. If you didn't make this request, please ignore this email.</p>
<p style="text-align: center;"><a href="{{.URL}}" style="background-color: #3b82f6; color: white; padding: 12px 20px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
<p>This link will expire in 30 minutes.</p>`,
	"reset_success": `<p>Hello {{.Name}},</p>
<p>Your password has been successfully reset. If you did not initiate this change, contact support immediately.</p>`,
	"subscribed": `<p>Thank you for subscribing to the InsightSphere newsletter!</p>
<p>You will receive an email at {{.Email}} whenever a new post is published.</p>`,
	"new_post": `{{if .Thumbnail}}<img src="{{.Thumbnail}}" alt="{{.PostTitle}}" style="max-width: 100%; border-radius: 8px;" />{{end}}
<p>{{.Description}}</p>
<p style="text-align: center;"><a href="{{.URL}}" style="background-color: #3b82f6; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">Read the full article</a></p>
<p style="font-size: 0.8em;">You are receiving this email because you subscribed to our newsletter.</p>`,
}

func render(name string, data map[string]any) (string, error) {
	body, ok := bodies[name]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	t, err := templates.Clone()
	if err != nil {
		return "", err
	}
	if _, err := t.New("body").Parse(body); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func build(to, subject, name string, data map[string]any) (Message, error) {
	data["Title"] = subject
	html, err := render(name, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: html}, nil
}

func Verification(to, name, code string) (Message, error) {
	return build(to, "Email Verification Code", "verification", map[string]any{"Name": displayName(name), "Code": code})
}

func Welcome(to, name string) (Message, error) {
	return build(to, "Welcome to InsightSphere", "welcome", map[string]any{"Name": displayName(name)})
}

func ResetRequest(to, url string) (Message, error) {
	return build(to, "Password Reset Request", "reset_request", map[string]any{"URL": url})
}

func ResetSuccess(to, name string) (Message, error) {
	return build(to, "Password Reset Success", "reset_success", map[string]any{"Name": displayName(name)})
}

func Subscribed(to string) (Message, error) {
	return build(to, "Subscription Confirmation", "subscribed", map[string]any{"Email": to})
}

// NewPost addresses every subscriber by Bcc.
func NewPost(subscribers []string, title, description, thumbnail, url string) (Message, error) {
	msg, err := build("", "New Post: "+title, "new_post", map[string]any{
		"PostTitle":   title,
		"Description": description,
		"Thumbnail":   thumbnail,
		"URL":         url,
	})
	if err != nil {
		return Message{}, err
	}
	msg.Bcc = subscribers
	return msg, nil
}

func displayName(name string) string {
	if name == "" {
		return "User"
	}
	return name
}
