package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

const MaxImageSize = 50 << 20 // 50MB

type APIServer struct {
	cfg    *Config
	db     *PostgreSQLDatabase
	store  *DiskStorage
	mailer *Mailer // nil when SMTP is not configured
}

func NewAPIServer(cfg *Config, db *PostgreSQLDatabase, store *DiskStorage, mailer *Mailer) *APIServer {
	return &APIServer{
		cfg:    cfg,
		db:     db,
		store:  store,
		mailer: mailer,
	}
}

type APIFunc func(w http.ResponseWriter, r *http.Request) error

// StatusError is an expected failure carrying the HTTP status it maps to.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

func statusErr(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func makeHandler(f APIFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}

		var statusError *StatusError
		if errors.As(err, &statusError) {
			slog.Error("Request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", statusError.Status,
				"message", statusError.Message,
			)
			writeJSON(w, statusError.Status, errorResponse{Success: false, Message: statusError.Message})

			return
		}

		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Message: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}

func (s *APIServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/register", makeHandler(s.HandleRegister)).Methods(http.MethodPost)
	r.HandleFunc("/login", makeHandler(s.HandleLogin)).Methods(http.MethodPost)
	r.HandleFunc("/verify-token", makeHandler(
		s.authMiddleware(s.HandleVerifyToken),
	)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload-picture", makeHandler(
		s.authMiddleware(s.HandleUploadPicture),
	)).Methods(http.MethodPost)
	api.HandleFunc("/pictures", makeHandler(
		s.authMiddleware(s.HandleListPictures),
	)).Methods(http.MethodGet)
	api.HandleFunc("/delete-picture/{id:[0-9]+}", makeHandler(
		s.authMiddleware(s.HandleDeletePicture),
	)).Methods(http.MethodDelete)
	api.HandleFunc("/feed", makeHandler(
		s.authMiddleware(s.HandleFeed),
	)).Methods(http.MethodGet)

	// Raw image bytes are public: anyone holding a storage key can read
	// them. Single files only; the key space must not be enumerable.
	r.HandleFunc("/images/{key}", makeHandler(s.HandleServeImage)).Methods(http.MethodGet)

	return r
}

func (s *APIServer) Run() error {
	srv := http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	slog.Info("Starting the server", "addr", srv.Addr)

	return srv.ListenAndServe()
}

type AuthedFunc func(userID int64, w http.ResponseWriter, r *http.Request) error

// authMiddleware reads a bearer token and hands the verified user id to the
// wrapped handler. A missing header is 401; a present but invalid one is 403.
func (s *APIServer) authMiddleware(f AuthedFunc) APIFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			return statusErr(http.StatusUnauthorized, "missing authorization token")
		}

		header := strings.SplitN(auth, " ", 2)
		if len(header) != 2 || !strings.EqualFold(header[0], "Bearer") {
			return statusErr(http.StatusForbidden, "invalid authorization token")
		}

		userID, err := VerifyAccessToken(s.cfg.JWTSecret, header[1])
		if err != nil {
			return statusErr(http.StatusForbidden, "invalid authorization token")
		}

		return f(userID, w, r)
	}
}

type HandleRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type HandleRegisterResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

func (s *APIServer) HandleRegister(w http.ResponseWriter, r *http.Request) error {
	var req HandleRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return statusErr(http.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return statusErr(http.StatusBadRequest, "email, password and fullName are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := s.db.CreateUser(r.Context(), req.Email, string(hash), req.FullName)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return statusErr(http.StatusBadRequest, "email already registered")
		}

		return err
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)

	if s.mailer != nil {
		go s.mailer.SendWelcome(user.Email, user.FullName)
	}

	return writeJSON(w, http.StatusOK, HandleRegisterResponse{Success: true, User: user})
}

type HandleLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type HandleLoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s *APIServer) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	var req HandleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return statusErr(http.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return statusErr(http.StatusBadRequest, "email and password are required")
	}

	// Unknown email and wrong password produce the same response, so a
	// caller cannot tell which one failed.
	user, err := s.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return statusErr(http.StatusUnauthorized, "invalid credentials")
		}

		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return statusErr(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := NewAccessToken(s.cfg.JWTSecret, user.ID)
	if err != nil {
		return err
	}

	slog.Info("User logged in", "user_id", user.ID, "email", user.Email)

	return writeJSON(w, http.StatusOK, HandleLoginResponse{Token: token, User: user})
}

func (s *APIServer) HandleVerifyToken(_ int64, w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type HandleUploadPictureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Image   Image  `json:"image"`
}

func (s *APIServer) HandleUploadPicture(userID int64, w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		return statusErr(http.StatusBadRequest, "could not parse upload form")
	}

	formFile, handler, err := r.FormFile("image")
	if err != nil {
		return statusErr(http.StatusBadRequest, "no image file in request")
	}
	defer formFile.Close()

	if handler.Size == 0 {
		return statusErr(http.StatusBadRequest, "no image file in request")
	}

	if _, err := s.db.GetUserByID(r.Context(), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return statusErr(http.StatusNotFound, "user not found")
		}

		return err
	}

	slog.Debug("Received an image",
		"filename", handler.Filename,
		"size", handler.Size,
		"user_id", userID,
	)

	// The storage key is random; the client filename is kept only as
	// display metadata, so identical uploads never clobber each other.
	key := uuid.NewString() + strings.ToLower(filepath.Ext(handler.Filename))

	if err := s.store.Save(key, formFile); err != nil {
		return err
	}

	img, err := s.db.CreateImage(r.Context(), userID, handler.Filename, key)
	if err != nil {
		// The disk write already happened; drop the file rather than
		// leaving an orphan behind.
		if rmErr := s.store.Remove(key); rmErr != nil {
			slog.Error("Removing file after failed insert", "key", key, "error", rmErr)
		}

		return err
	}
	img.URL = "/images/" + img.StorageKey

	slog.Info("Picture uploaded", "user_id", userID, "image_id", img.ID, "filename", img.FileName)

	return writeJSON(w, http.StatusOK, HandleUploadPictureResponse{
		Success: true,
		Message: "picture uploaded",
		Image:   img,
	})
}

type HandleListPicturesResponse struct {
	Success  bool    `json:"success"`
	Pictures []Image `json:"pictures"`
}

func (s *APIServer) HandleListPictures(userID int64, w http.ResponseWriter, r *http.Request) error {
	images, err := s.db.GetUserImages(r.Context(), userID)
	if err != nil {
		return err
	}

	for i := range images {
		images[i].URL = "/images/" + images[i].StorageKey
	}

	if images == nil {
		images = []Image{}
	}

	return writeJSON(w, http.StatusOK, HandleListPicturesResponse{Success: true, Pictures: images})
}

type HandleDeletePictureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *APIServer) HandleDeletePicture(userID int64, w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return statusErr(http.StatusBadRequest, "invalid picture id")
	}

	img, err := s.db.GetImageByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return statusErr(http.StatusNotFound, "picture not found")
		}

		return err
	}

	if img.UserID != userID {
		return statusErr(http.StatusForbidden, "picture belongs to another user")
	}

	// File removal is best effort; the record goes away either way and the
	// orphan sweeper picks up anything left behind.
	if err := s.store.Remove(img.StorageKey); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Picture file already absent", "key", img.StorageKey)
		} else {
			slog.Error("Removing picture file", "key", img.StorageKey, "error", err)
		}
	}

	if err := s.db.DeleteImageByID(r.Context(), id); err != nil {
		return err
	}

	slog.Info("Picture deleted", "user_id", userID, "image_id", id)

	return writeJSON(w, http.StatusOK, HandleDeletePictureResponse{Success: true, Message: "picture deleted"})
}

func (s *APIServer) HandleServeImage(w http.ResponseWriter, r *http.Request) error {
	path := s.store.path(mux.Vars(r)["key"])

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return statusErr(http.StatusNotFound, "image not found")
		}

		return err
	}

	http.ServeFile(w, r, path)

	return nil
}
