package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/guonaihong/gout"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/net/proxy"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"warranty-tracker/internal/config"
	"warranty-tracker/internal/models"
)

// Notification channels
const (
	ChannelEmail    = "email"
	ChannelWebhook  = "webhook"
	ChannelTelegram = "telegram"
	ChannelDingDing = "dingding"
	ChannelWhatsApp = "whatsapp"
)

// Message is a rendered reminder
type Message struct {
	AccountID     uint
	WarrantyID    string
	Subject       string
	Body          string
	DaysRemaining int
	ExpiryDate    string
}

// Notifier interface for different notification types
type Notifier interface {
	Channel() string
	Send(msg *Message) error
}

// DirectSender can deliver to an arbitrary recipient, e.g. the customer
type DirectSender interface {
	Notifier
	SendTo(recipient string, msg *Message) error
}

// NotifyService handles notifications
type NotifyService struct {
	db        *gorm.DB
	notifiers []Notifier
	direct    map[string]DirectSender

	// operatorAccount owns the configured channels; 0 means no account does
	operatorAccount uint
}

// NewNotifyService creates a new notification service with the enabled channels
func NewNotifyService(db *gorm.DB, cfg *config.NotificationsConfig) *NotifyService {
	service := NewNotifyServiceWith(db)

	// Add enabled notifiers
	if cfg.Email.Enabled {
		service.Add(NewEmailNotifier(&cfg.Email))
	}
	if cfg.Webhook.Enabled {
		service.Add(NewWebhookNotifier(&cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		service.Add(NewTelegramNotifier(&cfg.Telegram))
	}
	if cfg.DingDing.Enabled {
		service.Add(NewDingDingNotifier(&cfg.DingDing))
	}
	if cfg.WhatsApp.Enabled {
		service.Add(NewWhatsAppNotifier(&cfg.WhatsApp))
	}
	return service
}

// NewNotifyServiceWith creates a notification service around the given notifiers
func NewNotifyServiceWith(db *gorm.DB, notifiers ...Notifier) *NotifyService {
	service := &NotifyService{db: db, direct: make(map[string]DirectSender)}
	for _, n := range notifiers {
		service.Add(n)
	}
	return service
}

// Add registers a notifier; direct senders also serve customer reminders
func (s *NotifyService) Add(n Notifier) {
	s.notifiers = append(s.notifiers, n)
	if d, ok := n.(DirectSender); ok {
		s.direct[n.Channel()] = d
	}
}

// SetOperatorAccount hands the configured channels to one account
func (s *NotifyService) SetOperatorAccount(accountID uint) {
	s.operatorAccount = accountID
}

// SendOperator delivers an account's own expiry reminder. The configured
// channels only carry reminders of the operator account; every other account
// is reached by email at its own address.
func (s *NotifyService) SendOperator(msg *Message, email string) error {
	if s.operatorAccount != 0 && msg.AccountID == s.operatorAccount {
		return s.SendNotification(msg)
	}

	sender, ok := s.direct[ChannelEmail]
	if !ok {
		return fmt.Errorf("%w: email channel is not configured", ErrNoNotifier)
	}
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: account has no notification email", ErrNoNotifier)
	}

	status := "success"
	err := sender.SendTo(email, msg)
	if err != nil {
		status = "failed"
		log.Error().Err(err).Uint("account_id", msg.AccountID).Str("warranty_id", msg.WarrantyID).Msg("notification failed")
	}
	s.recordNotification(msg, ChannelEmail, "operator", status)
	return err
}

// SendNotification sends a reminder through all enabled channels. It only
// fails when every channel failed.
func (s *NotifyService) SendNotification(msg *Message) error {
	if len(s.notifiers) == 0 {
		return ErrNoNotifier
	}

	var lastErr error
	successCount := 0

	for _, notifier := range s.notifiers {
		if err := notifier.Send(msg); err != nil {
			log.Error().Err(err).Str("channel", notifier.Channel()).Str("warranty_id", msg.WarrantyID).Msg("notification failed")
			lastErr = err
			s.recordNotification(msg, notifier.Channel(), "operator", "failed")
			continue
		}

		s.recordNotification(msg, notifier.Channel(), "operator", "success")
		successCount++
		log.Info().Str("channel", notifier.Channel()).Str("warranty_id", msg.WarrantyID).Msg("notification sent")
	}

	if successCount > 0 {
		return nil
	}
	return lastErr
}

// SendToCustomer delivers a reminder to the customer on one channel
func (s *NotifyService) SendToCustomer(channel, recipient string, msg *Message) error {
	sender, ok := s.direct[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoNotifier, channel)
	}
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("%w: customer has no %s contact", ErrInvalidInput, channel)
	}

	status := "success"
	err := sender.SendTo(recipient, msg)
	if err != nil {
		status = "failed"
	}
	s.recordNotification(msg, channel, recipient, status)
	return err
}

// SentToday reports whether a successful reminder for the warranty was
// already recorded today
func (s *NotifyService) SentToday(warrantyID string, now time.Time) bool {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var count int64
	s.db.Model(&models.Notification{}).
		Where("warranty_id = ? AND status = ? AND recipient = ? AND sent_at >= ?", warrantyID, "success", "operator", start).
		Count(&count)
	return count > 0
}

// recordNotification records notification in database
func (s *NotifyService) recordNotification(msg *Message, channel, recipient, status string) {
	notification := &models.Notification{
		AccountID:     msg.AccountID,
		WarrantyID:    msg.WarrantyID,
		Channel:       channel,
		Recipient:     recipient,
		Content:       msg.Subject,
		DaysRemaining: msg.DaysRemaining,
		Status:        status,
		SentAt:        time.Now(),
	}
	if err := s.db.Create(notification).Error; err != nil {
		log.Warn().Err(err).Msg("failed to record notification")
	}
}

// History lists the latest notifications of an account
func (s *NotifyService) History(accountID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.Where("account_id = ?", accountID).Order("sent_at desc").Limit(limit).Find(&notifications).Error
	return notifications, err
}

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.EmailConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

func (e *EmailNotifier) Channel() string { return ChannelEmail }

// Send emails the configured recipients
func (e *EmailNotifier) Send(msg *Message) error {
	return e.send(e.config.To, msg)
}

// SendTo emails a single recipient
func (e *EmailNotifier) SendTo(recipient string, msg *Message) error {
	return e.send([]string{recipient}, msg)
}

func (e *EmailNotifier) send(to []string, msg *Message) error {
	if len(to) == 0 {
		return fmt.Errorf("email: no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.config.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := gomail.NewDialer(e.config.SMTPHost, e.config.SMTPPort, e.config.From, e.config.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// WebhookNotifier sends webhook notifications
type WebhookNotifier struct {
	config *config.WebhookConfig
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{config: cfg}
}

func (w *WebhookNotifier) Channel() string { return ChannelWebhook }

// Send posts the reminder as JSON
func (w *WebhookNotifier) Send(msg *Message) error {
	var code int
	err := gout.POST(w.config.URL).
		SetTimeout(30 * time.Second).
		SetJSON(gout.H{
			"warranty_id":    msg.WarrantyID,
			"subject":        msg.Subject,
			"message":        msg.Body,
			"days_remaining": msg.DaysRemaining,
			"expiry_date":    msg.ExpiryDate,
		}).
		Code(&code).
		Do()
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", code)
	}
	return nil
}

// TelegramNotifier sends Telegram notifications
type TelegramNotifier struct {
	config *config.TelegramConfig

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{config: cfg}
}

func (t *TelegramNotifier) Channel() string { return ChannelTelegram }

// api connects lazily; creating the client calls getMe
func (t *TelegramNotifier) api() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}

	client := &http.Client{Timeout: 30 * time.Second}
	if t.config.Proxy != "" {
		dialer, err := proxy.SOCKS5("tcp", t.config.Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(t.config.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	t.bot = bot
	return bot, nil
}

// Send messages the configured chat
func (t *TelegramNotifier) Send(msg *Message) error {
	chatID, err := cast.ToInt64E(t.config.ChatID)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", t.config.ChatID, err)
	}
	bot, err := t.api()
	if err != nil {
		return err
	}

	_, err = bot.Send(tgbotapi.NewMessage(chatID, "⚠️ "+msg.Subject+"\n\n"+msg.Body))
	return err
}

// DingDingNotifier sends DingTalk notifications
type DingDingNotifier struct {
	config *config.DingDingConfig
	now    func() time.Time
}

// NewDingDingNotifier creates a new DingTalk notifier
func NewDingDingNotifier(cfg *config.DingDingConfig) *DingDingNotifier {
	return &DingDingNotifier{config: cfg, now: time.Now}
}

func (d *DingDingNotifier) Channel() string { return ChannelDingDing }

// Send posts a markdown message, signed when a secret is configured
func (d *DingDingNotifier) Send(msg *Message) error {
	webhookURL, err := d.signedURL()
	if err != nil {
		return err
	}

	var result struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	var code int
	err = gout.POST(webhookURL).
		SetTimeout(30 * time.Second).
		SetJSON(gout.H{
			"msgtype": "markdown",
			"markdown": gout.H{
				"title": msg.Subject,
				"text":  "## " + msg.Subject + "\n\n" + strings.ReplaceAll(msg.Body, "\n", "\n\n"),
			},
		}).
		BindJSON(&result).
		Code(&code).
		Do()
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("dingding webhook returned status %d", code)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("dingding API error: %s", result.ErrMsg)
	}
	return nil
}

func (d *DingDingNotifier) signedURL() (string, error) {
	if d.config.Secret == "" {
		return d.config.Webhook, nil
	}

	parsedURL, err := url.Parse(d.config.Webhook)
	if err != nil {
		return "", fmt.Errorf("invalid webhook URL: %w", err)
	}
	timestamp := strconv.FormatInt(d.now().UnixMilli(), 10)

	query := parsedURL.Query()
	query.Add("timestamp", timestamp)
	query.Add("sign", dingDingSign(timestamp, d.config.Secret))
	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

func dingDingSign(timestamp, secret string) string {
	stringToSign := timestamp + "\n" + secret
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// WhatsAppNotifier sends WhatsApp messages through Twilio
type WhatsAppNotifier struct {
	config *config.WhatsAppConfig
	client *twilio.RestClient
}

// NewWhatsAppNotifier creates a new WhatsApp notifier
func NewWhatsAppNotifier(cfg *config.WhatsAppConfig) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		config: cfg,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
	}
}

func (w *WhatsAppNotifier) Channel() string { return ChannelWhatsApp }

// Send messages the operator number
func (w *WhatsAppNotifier) Send(msg *Message) error {
	return w.SendTo(w.config.To, msg)
}

// SendTo messages any phone number, local numbers get the country code
func (w *WhatsAppNotifier) SendTo(recipient string, msg *Message) error {
	number := FormatWhatsAppNumber(recipient, w.config.CountryCode)
	if number == "" {
		return fmt.Errorf("whatsapp: invalid phone number %q", recipient)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + number)
	params.SetFrom("whatsapp:" + w.config.From)
	params.SetBody(msg.Subject + "\n\n" + msg.Body)

	resp, err := w.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	if resp.Sid != nil {
		log.Debug().Str("sid", *resp.Sid).Msg("whatsapp message queued")
	}
	return nil
}

// FormatWhatsAppNumber strips formatting and replaces a leading trunk 0 with
// the country code. The result has no plus sign.
func FormatWhatsAppNumber(phone, countryCode string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	if strings.HasPrefix(number, "0") && countryCode != "" {
		number = countryCode + strings.TrimLeft(number, "0")
	}
	return number
}
