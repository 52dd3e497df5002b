package main

import (
	"context"
	"database/sql"
	"errors"

	_ "embed"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// ErrDuplicateEmail is returned by CreateUser when the email is already taken.
var ErrDuplicateEmail = errors.New("database: email already registered")

const pqUniqueViolation = "23505"

type PostgreSQLDatabase struct {
	db *sql.DB
}

// NewPostgreSQLDatabase wraps an already opened connection pool. The caller
// owns the pool's lifecycle.
func NewPostgreSQLDatabase(db *sql.DB) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{db: db}
}

func (pg *PostgreSQLDatabase) ApplySchema(ctx context.Context) error {
	_, err := pg.db.ExecContext(ctx, schema)
	return err
}

func (pg *PostgreSQLDatabase) CreateUser(ctx context.Context, email, passwordHash, fullName string) (User, error) {
	const createUser = `
	INSERT INTO users (email, password_hash, full_name)
	VALUES($1, $2, $3)
	RETURNING id, created_at
	`

	u := User{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
	}

	row := pg.db.QueryRowContext(ctx, createUser, email, passwordHash, fullName)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}

		return User{}, err
	}

	return u, nil
}

func (pg *PostgreSQLDatabase) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const getUserByEmail = `
	SELECT
		id,
    	email,
    	password_hash,
    	full_name,
    	created_at
	FROM users
	WHERE email = $1
	`

	row := pg.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.CreatedAt)

	return u, err
}

func (pg *PostgreSQLDatabase) GetUserByID(ctx context.Context, id int64) (User, error) {
	const getUserByID = `
	SELECT
		id,
    	email,
    	password_hash,
    	full_name,
    	created_at
	FROM users
	WHERE id = $1
	`

	row := pg.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.CreatedAt)

	return u, err
}

func (pg *PostgreSQLDatabase) CreateImage(ctx context.Context, userID int64, fileName, storageKey string) (Image, error) {
	const createImage = `
	INSERT INTO images(user_id, file_name, storage_key)
	VALUES($1, $2, $3)
	RETURNING id, created_at
	`

	i := Image{
		UserID:     userID,
		FileName:   fileName,
		StorageKey: storageKey,
	}

	row := pg.db.QueryRowContext(ctx, createImage, userID, fileName, storageKey)
	if err := row.Scan(&i.ID, &i.CreatedAt); err != nil {
		return Image{}, err
	}

	return i, nil
}

func (pg *PostgreSQLDatabase) GetImageByID(ctx context.Context, id int64) (Image, error) {
	const getImageByID = `
	SELECT
		id,
    	user_id,
    	file_name,
    	storage_key,
    	created_at
	FROM images
	WHERE id = $1
	`

	row := pg.db.QueryRowContext(ctx, getImageByID, id)
	var i Image
	err := row.Scan(&i.ID, &i.UserID, &i.FileName, &i.StorageKey, &i.CreatedAt)

	return i, err
}

// GetUserImages returns all images owned by userID, newest first.
func (pg *PostgreSQLDatabase) GetUserImages(ctx context.Context, userID int64) ([]Image, error) {
	const getUserImages = `
	SELECT
		id,
    	user_id,
    	file_name,
    	storage_key,
    	created_at
	FROM images
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	`

	rows, err := pg.db.QueryContext(ctx, getUserImages, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Image

	for rows.Next() {
		var i Image
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.FileName,
			&i.StorageKey,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}

		items = append(items, i)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (pg *PostgreSQLDatabase) DeleteImageByID(ctx context.Context, id int64) error {
	const deleteImageByID = `
	DELETE from images
	WHERE id = $1
	`

	_, err := pg.db.ExecContext(ctx, deleteImageByID, id)

	return err
}

// ListStorageKeys returns every storage key referenced by an image record.
// Used by the orphan sweeper to tell live files from leftovers.
func (pg *PostgreSQLDatabase) ListStorageKeys(ctx context.Context) (map[string]struct{}, error) {
	const listStorageKeys = `
	SELECT storage_key
	FROM images
	`

	rows, err := pg.db.QueryContext(ctx, listStorageKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}

		keys[key] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
