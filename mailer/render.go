package mailer

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const defaultButtonColor = "#4F46E5"

type view struct {
	Product Product
	Content
}

var textTmpl = texttemplate.Must(texttemplate.New("text").Parse(`Hi {{.Name}},

{{.Intro}}
{{with .Action}}
{{.Instructions}}

{{.ButtonText}}: {{.Link}}
{{end}}
{{.Outro}}

{{.Product.Name}}
{{.Product.Link}}
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #333;">
  <h1>Hi {{.Name}},</h1>
  <p>{{.Intro}}</p>
  {{with .Action}}
  <p>{{.Instructions}}</p>
  <p><a href="{{.Link}}" style="background: {{.ButtonColor}}; color: #fff; padding: 10px 18px; border-radius: 3px; text-decoration: none;">{{.ButtonText}}</a></p>
  {{end}}
  <p>{{.Outro}}</p>
  <p><a href="{{.Product.Link}}">{{.Product.Name}}</a></p>
</body>
</html>
`))

// Render produces the plain text and HTML bodies of content.
func Render(product Product, content Content) (string, string, error) {
	if content.Action != nil && content.Action.ButtonColor == "" {
		a := *content.Action
		a.ButtonColor = defaultButtonColor
		content.Action = &a
	}
	v := view{Product: product, Content: content}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, v); err != nil {
		return "", "", err
	}
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(text.String()) + "\n", html.String(), nil
}

// VerificationContent is the body of the sign-up verification mail.
func VerificationContent(name, verificationURL string) Content {
	return Content{
		Name:  name,
		Intro: "Welcome to AIBlog! Your account has been created successfully.",
		Action: &Action{
			Instructions: "To activate your account and start publishing posts, please verify your email address by clicking the button below:",
			ButtonText:   "Verify Email Address",
			Link:         verificationURL,
		},
		Outro: "If you didn't create this account, you can safely ignore this email. Need help? Just reply and our team will assist you.",
	}
}
