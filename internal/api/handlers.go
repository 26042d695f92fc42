package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"pagechat.io/pagechat/internal/auth"
	"pagechat.io/pagechat/internal/core"
	"pagechat.io/pagechat/internal/store"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 8

type APIHandler struct {
	chatService *core.ChatService
	dbStore     *store.SQLiteStore
}

func NewAPIHandler(cs *core.ChatService, db *store.SQLiteStore) *APIHandler {
	return &APIHandler{chatService: cs, dbStore: db}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := h.dbStore.GetUserByID(userID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %d: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}

		ctx := contextWithUserID(r.Context(), user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)

	if email == "" || username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email, username, and password are required")
		return
	}
	if !emailPattern.MatchString(email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long")
		return
	}

	existing, err := h.dbStore.GetUserByEmail(email)
	if err != nil {
		log.Printf("Error checking existing user %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	if _, err := h.dbStore.CreateUser(email, username, passwordHash); err != nil {
		log.Printf("Error creating user %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.dbStore.GetUserByEmail(email)
	if err != nil {
		log.Printf("Error getting user %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Unknown email and wrong password report identically.
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user": map[string]any{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
	})
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; logout is acknowledged and the client discards
	// its copy.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

type MessageRequest struct {
	ChatID string `json:"chat_id,omitempty"`
	URL    string `json:"url,omitempty"`
	Prompt string `json:"prompt"`
}

func (h *APIHandler) MessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.chatService.HandleTurn(r.Context(), userID, req.ChatID, req.URL, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyPrompt):
			writeError(w, http.StatusBadRequest, "Prompt is required")
		case errors.Is(err, core.ErrChatNotFound):
			writeError(w, http.StatusNotFound, "Chat not found or access denied")
		case errors.Is(err, core.ErrFetchFailed), errors.Is(err, core.ErrGenerationFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			log.Printf("Error handling turn for user %d, chat %q: %v", userID, req.ChatID, err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": result.Response,
		"chat_id":  result.ChatID,
	})
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	chats, err := h.chatService.ListChats(userID)
	if err != nil {
		log.Printf("Error listing chats for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list chats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"chats":   chats,
	})
}

func (h *APIHandler) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	chatID := chi.URLParam(r, "chatID")

	messages, err := h.chatService.GetChatMessages(chatID, userID)
	if err != nil {
		if errors.Is(err, core.ErrChatNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found or access denied")
			return
		}
		log.Printf("Error getting chat %s for user %d: %v", chatID, userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get chat")
		return
	}

	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"chat_id":  chatID,
		"messages": messages,
	})
}

func (h *APIHandler) NewChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	chatID, err := h.chatService.NewChat(userID)
	if err != nil {
		log.Printf("Error creating chat for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"chat_id": chatID,
	})
}
