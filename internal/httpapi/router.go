package httpapi

import (
	"net/http"
	"strings"

	"fastpay-backend/internal/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router uses the standard library ServeMux to avoid a routing dependency.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{mux: http.NewServeMux(), logger: logger}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, instrument(pattern, r.logger, h))
}

// Register wires every dashboard route.
func (r *Router) Register(auth *AuthHandler, devices *DevicesHandler, syncH *SyncHandler, companies *CompaniesHandler, health *HealthHandler) {
	r.handle("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		auth.Login(w, req)
	})

	r.handle("/api/devices", auth.RequireAuth(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		devices.List(w, req)
	}))

	r.handle("/api/devices/export", auth.RequireAuth(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		devices.Export(w, req)
	}))

	// /api/devices/{id} and its sub-collections
	r.handle("/api/devices/", auth.RequireAuth(func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/devices/")
		deviceID, sub, _ := strings.Cut(rest, "/")
		if deviceID == "" || deviceID == "export" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch sub {
		case "":
			switch req.Method {
			case http.MethodGet:
				devices.Get(w, req, deviceID)
			case http.MethodPatch:
				devices.Patch(w, req, deviceID)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case "messages":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			devices.Messages(w, req, deviceID)
		case "notifications":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			devices.Notifications(w, req, deviceID)
		case "contacts":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			devices.Contacts(w, req, deviceID)
		case "bank-cards":
			devices.BankCards(w, req, deviceID)
		case "sync":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			syncH.RunDevice(w, req, deviceID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	r.handle("/api/bank-cards/", auth.RequireAuth(func(w http.ResponseWriter, req *http.Request) {
		cardID := strings.TrimPrefix(req.URL.Path, "/api/bank-cards/")
		if cardID == "" || strings.Contains(cardID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		devices.BankCard(w, req, cardID)
	}))

	r.handle("/api/companies", auth.RequireAuth(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		companies.List(w, req)
	}))

	r.handle("/api/sync/run", auth.RequireRole(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		syncH.Run(w, req)
	}, domain.RoleAdmin))

	r.handle("/api/sync/logs", auth.RequireAuth(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		syncH.Logs(w, req)
	}))

	r.handle("/healthz", health.Check)
	r.mux.Handle("/metrics", promhttp.Handler())
}
