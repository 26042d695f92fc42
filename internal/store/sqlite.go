package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        email TEXT UNIQUE NOT NULL,
        username TEXT NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        chat_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (chat_id) REFERENCES chats (id)
    );

    CREATE TABLE IF NOT EXISTS scrape_cache (
        chat_id TEXT PRIMARY KEY,
        last_url TEXT,
        last_content TEXT,
        FOREIGN KEY (chat_id) REFERENCES chats (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// sanitizeInput strips NUL bytes (which SQLite text handling chokes on) and
// surrounding whitespace before a value is written to the database.
func sanitizeInput(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}

// User methods

func (s *SQLiteStore) CreateUser(email, username, passwordHash string) (*User, error) {
	res, err := s.db.Exec(
		"INSERT INTO users (email, username, password_hash) VALUES (?, ?, ?)",
		sanitizeInput(email), sanitizeInput(username), passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(id)
}

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, email, username, password_hash, created_at FROM users WHERE email = ?",
		email,
	).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, email, username, password_hash, created_at FROM users WHERE id = ?",
		id,
	).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Chat methods

func (s *SQLiteStore) CreateChat(userID int64) (*Chat, error) {
	chatID := uuid.NewString()
	now := time.Now()

	stmt, err := s.db.Prepare("INSERT INTO chats (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chat insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(chatID, userID, now, now); err != nil {
		return nil, fmt.Errorf("failed to execute chat insert: %w", err)
	}
	return &Chat{ID: chatID, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
}

// GetChatOwner returns the owning user id for a chat, or found=false when the
// chat does not exist.
func (s *SQLiteStore) GetChatOwner(chatID string) (int64, bool, error) {
	var ownerID int64
	err := s.db.QueryRow("SELECT user_id FROM chats WHERE id = ?", chatID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query chat owner: %w", err)
	}
	return ownerID, true, nil
}

func (s *SQLiteStore) GetChatsByUserID(userID int64) ([]Chat, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (s *SQLiteStore) TouchChat(chatID string) error {
	stmt, err := s.db.Prepare("UPDATE chats SET updated_at = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare chat touch: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(time.Now(), chatID)
	if err != nil {
		return fmt.Errorf("failed to execute chat touch: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("chat not found, timestamp not updated")
	}
	return nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.Timestamp = time.Now()
	msg.Content = sanitizeInput(msg.Content)

	stmt, err := s.db.Prepare("INSERT INTO messages (chat_id, role, content, timestamp) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(msg.ChatID, msg.Role, msg.Content, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

// GetMessagesByChatID returns all messages for a chat, oldest first. The id
// tiebreaker keeps a turn's user message ahead of its assistant reply when
// both carry the same timestamp.
func (s *SQLiteStore) GetMessagesByChatID(chatID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, chat_id, role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY timestamp ASC, id ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *SQLiteStore) GetFirstMessageByChatID(chatID string) (*Message, error) {
	var msg Message
	err := s.db.QueryRow(
		"SELECT id, chat_id, role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY timestamp ASC, id ASC LIMIT 1",
		chatID,
	).Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Chat has no messages yet
		}
		return nil, fmt.Errorf("failed to query first message: %w", err)
	}
	return &msg, nil
}

// Scrape cache methods

// UpsertScrapeCache replaces the chat's cached scrape wholesale. At most one
// record exists per chat.
func (s *SQLiteStore) UpsertScrapeCache(chatID, url, content string) error {
	stmt, err := s.db.Prepare("INSERT OR REPLACE INTO scrape_cache (chat_id, last_url, last_content) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare scrape cache upsert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(chatID, sanitizeInput(url), sanitizeInput(content)); err != nil {
		return fmt.Errorf("failed to execute scrape cache upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetScrapeCache(chatID string) (*ScrapeCache, error) {
	var cache ScrapeCache
	err := s.db.QueryRow(
		"SELECT chat_id, last_url, last_content FROM scrape_cache WHERE chat_id = ?",
		chatID,
	).Scan(&cache.ChatID, &cache.LastURL, &cache.LastContent)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No cached scrape yet
		}
		return nil, fmt.Errorf("failed to query scrape cache: %w", err)
	}
	return &cache, nil
}
