package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/domain"
	"github.com/airenas/live-capture-wrapper/internal/pcm"
	"github.com/airenas/live-capture-wrapper/internal/secure"
	"github.com/redis/go-redis/v9"
)

// RedisDataManager stores encrypted notes and audio in Redis
type RedisDataManager struct {
	client     redis.UniversalClient
	audioTTL   time.Duration
	sampleRate int
	crypter    *secure.Crypter
}

// NewRedisDataManager creates manager from redis URL
func NewRedisDataManager(connStr string, encryptionKey string, sampleRate int) (*RedisDataManager, error) {
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	goapp.Log.Info().Str("redis", opt.Addr).Int("db", opt.DB).Send()
	return newRedisDataManager(redis.NewClient(opt), encryptionKey, sampleRate)
}

func newRedisDataManager(client redis.UniversalClient, encryptionKey string, sampleRate int) (*RedisDataManager, error) {
	crypter, err := secure.NewCrypter(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create crypter: %w", err)
	}
	return &RedisDataManager{
		client:     client,
		audioTTL:   time.Hour * 6,
		sampleRate: sampleRate,
		crypter:    crypter,
	}, nil
}

func keyAudio(id string) string {
	return fmt.Sprintf("audio:%s", id)
}

func keyNotes(patientID string) string {
	return fmt.Sprintf("notes:%s", patientID)
}

// SaveAudio stores WAV bytes, they expire after audioTTL
func (r *RedisDataManager) SaveAudio(ctx context.Context, id string, chunks [][]byte) error {
	goapp.Log.Trace().Str("id", id).Msg("Save audio")
	data, err := pcm.ToWAV(chunks, r.sampleRate)
	if err != nil {
		return fmt.Errorf("convert to wav: %w", err)
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.Set(ctx, keyAudio(id), encrypted, r.audioTTL).Err()
}

// GetAudio retrieves WAV bytes
func (r *RedisDataManager) GetAudio(ctx context.Context, id string) ([]byte, error) {
	b, err := r.client.Get(ctx, keyAudio(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	decrypted, err := r.crypter.Decrypt(b)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return decrypted, nil
}

// SaveNote appends the note to the patient's list
func (r *RedisDataManager) SaveNote(ctx context.Context, note *domain.Note) error {
	if note == nil || note.PatientID == "" {
		return fmt.Errorf("no patient")
	}
	data, err := json.Marshal(note)
	if err != nil {
		return err
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.RPush(ctx, keyNotes(note.PatientID), encrypted).Err()
}

// ListNotes returns the patient's notes in save order
func (r *RedisDataManager) ListNotes(ctx context.Context, patientID string) ([]*domain.Note, error) {
	items, err := r.client.LRange(ctx, keyNotes(patientID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get notes: %w", err)
	}
	res := make([]*domain.Note, 0, len(items))
	for _, it := range items {
		decrypted, err := r.crypter.Decrypt([]byte(it))
		if err != nil {
			return nil, fmt.Errorf("decrypt: %w", err)
		}
		var n domain.Note
		if err := json.Unmarshal(decrypted, &n); err != nil {
			return nil, err
		}
		res = append(res, &n)
	}
	return res, nil
}

func (r *RedisDataManager) Close() error {
	return r.client.Close()
}
