package mail

import (
	"bytes"
	"html/template"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "confirm"}}<p>Welcome!</p>
<p>Confirm your email address to start creating headshots:</p>
<p><a href="{{.Link}}">Confirm email</a></p>
<p>If you did not sign up you can ignore this message.</p>{{end}}
{{define "recovery"}}<p>Someone asked to reset the password of this account.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If it was not you, ignore this message. The link expires soon.</p>{{end}}
{{define "trained"}}<p>Your model was successfully trained!</p>
<p>Your headshots for <strong>{{.Name}}</strong> are being generated. You can view them here:</p>
<p><a href="{{.Link}}">View headshots</a></p>{{end}}
`))

func render(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return ""
	}
	return buf.String()
}

func ConfirmSignup(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Confirm your email",
		HTML:    render("confirm", map[string]string{"Link": link}),
	}
}

func PasswordRecovery(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		HTML:    render("recovery", map[string]string{"Link": link}),
	}
}

func ModelTrained(to, modelName, link string) Message {
	return Message{
		To:      to,
		Subject: "Your model was successfully trained!",
		HTML:    render("trained", map[string]string{"Name": modelName, "Link": link}),
	}
}
