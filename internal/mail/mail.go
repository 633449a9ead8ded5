package mail

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"

	"github.com/polyclinic/scheduler/internal/auth"
)

// TLS modes accepted in configuration.
const (
	TLSMandatory     = "mandatory"
	TLSOpportunistic = "opportunistic"
	TLSImplicit      = "implicit"
	TLSNone          = "none"
)

// Config holds outbound SMTP parameters.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      string
}

// SMTPMailer delivers auth.Message values over SMTP.
type SMTPMailer struct {
	cfg  Config
	opts []gomail.Option
}

var _ auth.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer validates cfg and prepares client options. Connections are
// opened per message.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("mail host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("mail from address is required")
	}
	opts := []gomail.Option{}
	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.TLS)) {
	case "", TLSMandatory:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	case TLSOpportunistic:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	case TLSImplicit:
		opts = append(opts, gomail.WithSSL())
	case TLSNone:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	default:
		return nil, oops.Code("CONFIG_INVALID").With("tls", cfg.TLS).Errorf("unknown mail tls mode %q", cfg.TLS)
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	return &SMTPMailer{cfg: cfg, opts: opts}, nil
}

// Send renders msg and delivers it in a single SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, msg auth.Message) error {
	out, err := m.build(msg)
	if err != nil {
		return err
	}
	client, err := gomail.NewClient(m.cfg.Host, m.opts...)
	if err != nil {
		return oops.Code("MAIL_CLIENT_FAILED").With("host", m.cfg.Host).Wrap(err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("host", m.cfg.Host).Wrap(err)
	}
	return nil
}

func (m *SMTPMailer) build(msg auth.Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return nil, oops.Code("MAIL_INVALID").With("field", "from").Wrap(err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, oops.Code("MAIL_INVALID").With("field", "to").Wrap(err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return out, nil
}

// LogMailer logs messages instead of sending them. It is used when no SMTP
// host is configured.
type LogMailer struct {
	logger *slog.Logger
}

var _ auth.Mailer = (*LogMailer)(nil)

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("mail delivery disabled; outgoing messages are only logged")
	return &LogMailer{logger: logger}
}

// Send logs recipient and subject. Bodies carry reset tokens and are only
// logged at debug level.
func (m *LogMailer) Send(ctx context.Context, msg auth.Message) error {
	m.logger.InfoContext(ctx, "mail_outbox", "to", msg.To, "subject", msg.Subject)
	m.logger.DebugContext(ctx, "mail_outbox_body", "to", msg.To, "body", msg.Body)
	return nil
}

// New picks SMTPMailer when a host is configured and LogMailer otherwise.
func New(cfg Config, logger *slog.Logger) (auth.Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return NewLogMailer(logger), nil
	}
	return NewSMTPMailer(cfg)
}
