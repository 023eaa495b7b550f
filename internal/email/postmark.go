package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendCoupon sends the reward coupon to a petition signer with the code,
// generation balance, and expiry date.
func (c *Client) SendCoupon(toEmail, code, level string, generations int, expiresAt time.Time) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	subject := "Votre coupon Sauvons la Chapelle"
	expiry := expiresAt.Format("02/01/2006")

	textBody := fmt.Sprintf(
		"Merci d'avoir signé la pétition !\n\nVotre coupon (%s) : %s\nGénérations d'images incluses : %d\nValable jusqu'au %s\n\nUtilisez-le sur %s pour imaginer la chapelle reconvertie.",
		strings.ToUpper(level), code, generations, expiry, c.baseURL,
	)
	htmlBody := fmt.Sprintf(
		`<p>Merci d'avoir signé la pétition !</p><p>Votre coupon (<strong>%s</strong>) : <code>%s</code></p><p>Générations d'images incluses : %d<br>Valable jusqu'au %s</p><p>Utilisez-le sur <a href="%s">%s</a> pour imaginer la chapelle reconvertie.</p>`,
		strings.ToUpper(level), code, generations, expiry, c.baseURL, c.baseURL,
	)

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
