package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/honeynil/storefront-api/internal/infrastructure/auth"
	"github.com/honeynil/storefront-api/internal/models"
	service "github.com/honeynil/storefront-api/internal/services"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"github.com/honeynil/storefront-api/pkg/requestid"
	"go.uber.org/zap"
)

// Guard wraps handlers with the authentication pipeline.
type Guard interface {
	Authenticate(next http.Handler) http.Handler
	Protect(roles ...models.Role) func(http.Handler) http.Handler
}

type Handler struct {
	auth     service.AuthService
	accounts service.AccountService
	catalog  service.CatalogService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(authSvc service.AuthService, accounts service.AccountService, catalog service.CatalogService, logger *zap.Logger) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		auth:     authSvc,
		accounts: accounts,
		catalog:  catalog,
		validate: validate,
		logger:   logger,
	}
}

// RegisterRoutes mounts the API on r. Public routes are left open, the rest
// go through guard.
func (h *Handler) RegisterRoutes(r *mux.Router, guard Guard) {
	admin := guard.Protect(models.RoleAdmin)

	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods(http.MethodGet)

	r.Handle("/users/me", guard.Authenticate(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	r.Handle("/products", admin(http.HandlerFunc(h.CreateProduct))).Methods(http.MethodPost)
	r.Handle("/admin/users/{id:[0-9]+}", admin(http.HandlerFunc(h.GetUser))).Methods(http.MethodGet)
	r.Handle("/admin/users/{id:[0-9]+}/status", admin(http.HandlerFunc(h.SetUserStatus))).Methods(http.MethodPatch)
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	kind := "fail"
	if status >= http.StatusInternalServerError {
		kind = "error"
	}
	writeJSON(w, status, errorResponse{Status: kind, Message: message})
}

// writeServiceError maps domain errors onto responses. Unknown errors are
// logged and never shown to the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *auth.Error
	switch {
	case errors.As(err, &authErr):
		h.writeError(w, authErr.Status(), authErr.Message())
	case errors.Is(err, pkgerrors.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, "Incorrect email or password.")
	case errors.Is(err, pkgerrors.ErrAccountInactive):
		h.writeError(w, http.StatusForbidden, "This account has been deactivated.")
	case errors.Is(err, pkgerrors.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, pkgerrors.ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "Product not found.")
	case errors.Is(err, pkgerrors.ErrUserAlreadyExists):
		h.writeError(w, http.StatusConflict, "A user with this email already exists.")
	case errors.Is(err, pkgerrors.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("request_id", requestid.FromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Something went wrong.")
	}
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Malformed request body.")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request."
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(parts, ", ") + "."
}

func pathID(r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, ExpiresIn: int64(res.ExpiresIn.Seconds())})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.writeServiceError(w, r, auth.ErrNoCredential)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ListOptions{
		NewArrivals: q.Get("new_arrivals") == "true",
		Promotions:  q.Get("promotions") == "true",
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s.", name))
			return
		}
		*dst = n
	}

	products, err := h.catalog.ListProducts(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Invalid product id.")
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type createProductRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=4000"`
	PriceCents      int64  `json:"price_cents" validate:"required,gt=0"`
	Currency        string `json:"currency" validate:"required,len=3,alpha"`
	DiscountPercent int32  `json:"discount_percent" validate:"gte=0,lt=100"`
	ImageURL        string `json:"image_url" validate:"omitempty,url"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product := &models.Product{
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		Currency:        req.Currency,
		DiscountPercent: req.DiscountPercent,
		ImageURL:        req.ImageURL,
	}
	if err := h.catalog.CreateProduct(r.Context(), product); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}
	user, err := h.accounts.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type setStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}
	var req setStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	if admin, ok := auth.PrincipalFromContext(r.Context()); ok && admin.ID == id && !*req.Active {
		h.writeError(w, http.StatusBadRequest, "You cannot deactivate your own account.")
		return
	}

	user, err := h.accounts.SetActive(r.Context(), id, *req.Active)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
