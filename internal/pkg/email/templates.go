package email

import (
	"bytes"
	"html/template"
	"strings"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #15803d;">YardConnect Review Verification</h2>
        <p>Thank you for leaving a review for <strong>{{.ProfileName}}</strong>.</p>
        <p>Your rating: <strong>{{.Stars}}</strong> ({{.Rating}}/5)</p>
        {{if .Comment}}<p style="background-color: #f3f4f6; padding: 10px;">"{{.Comment}}"</p>{{end}}
        <p>Please confirm your email address to publish the review:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.Link}}" style="background-color: #15803d; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Verify my review</a>
        </div>
        <p>Or copy this link into your browser:</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">{{.Link}}</p>
        <p>If you did not submit this review, you can safely ignore this email.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message from YardConnect. Please do not reply.</p>
    </div>
</body>
</html>
`))

var newReviewTmpl = template.Must(template.New("new_review").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #15803d;">You have a new review</h2>
        <p>Hi {{.ProfileName}},</p>
        <p>A customer just rated you <strong>{{.Stars}}</strong> ({{.Rating}}/5) on YardConnect.</p>
        {{if .Comment}}<p style="background-color: #f3f4f6; padding: 10px;">"{{.Comment}}"</p>{{end}}
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message from YardConnect. Please do not reply.</p>
    </div>
</body>
</html>
`))

type reviewData struct {
	ProfileName string
	Rating      int
	Stars       string
	Comment     string
	Link        string
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// VerificationEmail 评价验证邮件
func VerificationEmail(profileName string, rating int, comment, link string) (subject, body string, err error) {
	var buf bytes.Buffer
	err = verificationTmpl.Execute(&buf, reviewData{
		ProfileName: profileName,
		Rating:      rating,
		Stars:       stars(rating),
		Comment:     comment,
		Link:        link,
	})
	if err != nil {
		return "", "", err
	}
	return "Verify your review for " + profileName, buf.String(), nil
}

// NewReviewEmail 通知服务者收到新评价
func NewReviewEmail(profileName string, rating int, comment string) (subject, body string, err error) {
	var buf bytes.Buffer
	err = newReviewTmpl.Execute(&buf, reviewData{
		ProfileName: profileName,
		Rating:      rating,
		Stars:       stars(rating),
		Comment:     comment,
	})
	if err != nil {
		return "", "", err
	}
	return "New review on YardConnect", buf.String(), nil
}
