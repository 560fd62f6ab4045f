package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"enclaveai-backend/internal/models"
)

// overrideGrant is the stored form of an emergency access grant. The
// signature binds the user id and grant time to the store's secret, so a
// grant cannot be forged or replayed for another user by writing keys
// directly.
type overrideGrant struct {
	UserID string    `json:"user_id"`
	SetAt  time.Time `json:"set_at"`
	Sig    string    `json:"sig"`
}

// GrantEmergencyAccess issues a time-boxed override for token. If no
// session record exists one is created carrying the user id with the
// logged-in flag unset; IsLoggedIn's override branch then self-heals it.
// Returns when the grant expires.
func (s *Store) GrantEmergencyAccess(ctx context.Context, token, userID string) (time.Time, error) {
	rec := s.getRecord(ctx, token)
	if rec == nil {
		rec = &models.SessionRecord{UserID: userID, Duration: s.duration}
	} else if rec.UserID != userID {
		return time.Time{}, ErrSessionConflict
	}
	if err := s.putRecord(ctx, token, rec); err != nil {
		return time.Time{}, err
	}

	g := overrideGrant{UserID: userID, SetAt: s.now()}
	g.Sig = s.signGrant(userID, g.SetAt)
	b, err := json.Marshal(g)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.durable.Set(ctx, overrideKeyPrefix+token, string(b), OverrideWindow); err != nil {
		return time.Time{}, err
	}
	return g.SetAt.Add(OverrideWindow), nil
}

func (s *Store) getOverride(ctx context.Context, token string) *overrideGrant {
	val, err := s.durable.Get(ctx, overrideKeyPrefix+token)
	if err != nil || val == "" {
		return nil
	}
	var g overrideGrant
	if err := json.Unmarshal([]byte(val), &g); err != nil {
		return nil
	}
	return &g
}

func (s *Store) signGrant(userID string, setAt time.Time) string {
	mac := hmac.New(sha256.New, s.overrideSecret)
	mac.Write([]byte(userID))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(setAt.UnixNano(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Store) verifyGrant(g *overrideGrant) bool {
	expected := s.signGrant(g.UserID, g.SetAt)
	return hmac.Equal([]byte(g.Sig), []byte(expected))
}
