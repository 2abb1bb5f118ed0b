package web

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ticketd/cmd/identity"
	"ticketd/cmd/internal/audit"
	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/ticket"
)

// Config controls handler behavior. Field tags are read by the app config.
type Config struct {
	// SigningKey signs issued session tokens. Empty falls back to an unkeyed digest.
	SigningKey string `env:"SIGNING_KEY"`
	// SessionTTL is the nominal lifetime written into issued tokens and the cookie.
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	// TrustProxy reads the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
	// StaticDir is served for unmatched routes when set.
	StaticDir string `env:"STATIC_DIR"`

	// LoginIPMax failed logins from one address within LoginIPWindow block
	// further attempts. Zero disables the throttle.
	LoginIPMax    int           `env:"LOGIN_IP_MAX" envDefault:"20"`
	LoginIPWindow time.Duration `env:"LOGIN_IP_WINDOW" envDefault:"5m"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{SessionTTL: 24 * time.Hour, MaxBodyBytes: 1 << 20, LoginIPMax: 20, LoginIPWindow: 5 * time.Minute}
}

// Handler wires HTTP endpoints to the ticket store and the login directory.
type Handler struct {
	log *slog.Logger
	cfg Config

	store     *ticket.Store
	directory *identity.Directory
	cookie    auth.CookieConfig
	audit     audit.Recorder
	failures  FailureLog

	now func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithAuditRecorder overrides the default no-op audit recorder.
func WithAuditRecorder(rec audit.Recorder) HandlerOption {
	return func(h *Handler) {
		if h == nil || rec == nil {
			return
		}
		h.audit = rec
	}
}

// WithFailureLog enables login throttling backed by fl.
func WithFailureLog(fl FailureLog) HandlerOption {
	return func(h *Handler) {
		if h == nil || fl == nil {
			return
		}
		h.failures = fl
	}
}

// WithClock overrides the clock used for token expiry and throttle windows.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs a Handler. cookie must match the resolver's cookie settings.
func NewHandler(log *slog.Logger, store *ticket.Store, dir *identity.Directory, cookie auth.CookieConfig, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if store == nil {
		return nil, errors.New("web: nil ticket store")
	}
	if dir == nil {
		return nil, errors.New("web: nil account directory")
	}
	if log == nil {
		log = slog.Default()
	}

	def := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.LoginIPWindow <= 0 {
		cfg.LoginIPWindow = def.LoginIPWindow
	}
	cfg.StaticDir = strings.TrimSpace(cfg.StaticDir)

	h := &Handler{
		log:       log,
		cfg:       cfg,
		store:     store,
		directory: dir,
		cookie:    cookie,
		audit:     audit.NopRecorder{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires the routes onto r. gate guards the ticket resource; feed, when
// non-nil, is mounted as the ticket event stream behind the same gate.
func (h *Handler) Register(r chi.Router, gate func(http.Handler) http.Handler, feed http.Handler) {
	if h == nil || r == nil {
		return
	}

	r.Get("/hello", h.handleHello)
	r.Get("/hello2/{name}", h.handleHello2)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/logoff", h.handleLogoff)

		r.Route("/tickets", func(r chi.Router) {
			if gate != nil {
				r.Use(gate)
			}
			r.Post("/", h.handleCreateTicket)
			r.Get("/", h.handleListTickets)
			r.Delete("/{id}", h.handleDeleteTicket)
			if feed != nil {
				r.Get("/ws", feed.ServeHTTP)
			}
		})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})
	r.NotFound(h.fallback())
}

// fallback serves StaticDir for unmatched routes, or a JSON 404.
func (h *Handler) fallback() http.HandlerFunc {
	notFound := func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "not found")
	}

	if h.cfg.StaticDir == "" {
		return notFound
	}
	if fi, err := os.Stat(h.cfg.StaticDir); err != nil || !fi.IsDir() {
		h.log.Warn("http.static.unavailable", "dir", h.cfg.StaticDir, "err", err)
		return notFound
	}

	fs := http.FileServer(http.Dir(h.cfg.StaticDir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			notFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	}
}
