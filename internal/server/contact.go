package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Mlcruz9/miguel-dev/internal/config"
	"github.com/Mlcruz9/miguel-dev/internal/content"
)

var ErrMailNotConfigured = errors.New("SMTP credentials not configured")

// ContactMessage is the contact form as bound by gin. The singleline rule
// keeps the name out of the mail headers' way.
type ContactMessage struct {
	Name    string `form:"fullName" binding:"required,max=120,singleline"`
	Email   string `form:"email" binding:"required,email"`
	Message string `form:"message" binding:"required,max=4000"`
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
			return !strings.ContainsAny(fl.Field().String(), "\r\n")
		})
	}
}

// Validate trims the fields and checks them against the binding rules.
func (m *ContactMessage) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Message = strings.TrimSpace(m.Message)
	return contactError(binding.Validator.ValidateStruct(m))
}

// contactError turns validator output into a message fit for the form.
func contactError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("please fill in every field")
	}
	switch fe := verrs[0]; fe.Tag() {
	case "max":
		return errors.New("message is too long")
	case "singleline":
		return errors.New("name must be a single line")
	case "email":
		return errors.New("please enter a valid email address")
	default:
		return errors.New("please fill in every field")
	}
}

// bindContact binds the posted form. Whitespace-only fields are caught by
// the second pass in Validate.
func bindContact(c *gin.Context) (ContactMessage, error) {
	var msg ContactMessage
	if err := c.ShouldBind(&msg); err != nil {
		msg.Name = strings.TrimSpace(msg.Name)
		msg.Email = strings.TrimSpace(msg.Email)
		msg.Message = strings.TrimSpace(msg.Message)
		return msg, contactError(err)
	}
	return msg, msg.Validate()
}

type Mailer interface {
	Send(ctx context.Context, msg ContactMessage) error
}

// SMTPMailer delivers contact messages to the site owner's inbox.
type SMTPMailer struct {
	cfg config.SMTP
	log *zap.Logger
}

func NewSMTPMailer(cfg config.SMTP, log *zap.Logger) *SMTPMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, log: log}
}

func (m *SMTPMailer) Send(_ context.Context, msg ContactMessage) error {
	if !m.cfg.Configured() {
		return ErrMailNotConfigured
	}

	subject := fmt.Sprintf("Portfolio Contact: %s", msg.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, msg.Name, msg.Email, msg.Message)

	raw := []byte("To: " + m.cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + m.cfg.User + "\r\n" +
		"Reply-To: " + msg.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	if err := smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.User, []string{m.cfg.To}, raw); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.log.Info("Email sent", zap.String("from", msg.Email))
	return nil
}

func (s *Server) setupContactRoutes(r *gin.Engine) {
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{
			"title": "Contact Me",
		})
	})

	r.POST("/contact", func(c *gin.Context) {
		msg, err := bindContact(c)
		if err != nil {
			c.HTML(http.StatusOK, "contact.html", gin.H{
				"title":    "Contact Me",
				"error":    err.Error(),
				"fullName": msg.Name,
				"email":    msg.Email,
				"message":  msg.Message,
			})
			return
		}

		if err := s.mailer.Send(c.Request.Context(), msg); err != nil {
			s.log.Error("Error sending email", zap.Error(err))
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Sorry, there was an error sending your message. Please try again later.",
			})
			return
		}

		c.HTML(http.StatusOK, "contact-success.html", gin.H{
			"success": "Thank you for your message! I'll get back to you soon.",
		})
	})

	r.GET("/contact/qr.png", func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, "image/png", s.qr)
	})
}

// contactQR encodes a vCard with the public contact details.
func contactQR(p *content.Portfolio) ([]byte, error) {
	var b strings.Builder
	b.WriteString("BEGIN:VCARD\nVERSION:3.0\n")
	fmt.Fprintf(&b, "FN:%s\n", p.Profile.Name)
	if p.Profile.Email != "" {
		fmt.Fprintf(&b, "EMAIL:%s\n", p.Profile.Email)
	}
	for _, u := range []string{p.Links.LinkedIn, p.Links.GitHub} {
		if u != "" {
			fmt.Fprintf(&b, "URL:%s\n", u)
		}
	}
	b.WriteString("END:VCARD\n")
	return qrcode.Encode(b.String(), qrcode.Medium, 256)
}
