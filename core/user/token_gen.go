package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamped HMAC tokens for email round trips (password reset, email
// verification). The hash covers mutable user state so a token is
// single-use: resetting the password or verifying the email invalidates
// any outstanding token for that purpose.

type tokenPurpose string

const (
	purposePasswordReset     tokenPurpose = "password-reset"
	purposeEmailVerification tokenPurpose = "email-verification"
)

var (
	salt    = []byte("elimu.core.user.token_gen")
	nowFunc = time.Now // mockable

	// set from config via InitTokenGenerator
	secretKey                     []byte
	passwordResetTimeoutDelta     time.Duration
	emailVerificationTimeoutDelta time.Duration

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// InitTokenGenerator configures the signing key and timeout windows.
func InitTokenGenerator(secret []byte, resetTimeout, verificationTimeout time.Duration) {
	secretKey = secret
	passwordResetTimeoutDelta = resetTimeout
	emailVerificationTimeoutDelta = verificationTimeout
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

// DecodeUID base64 decodes given UID
func DecodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakePasswordResetToken generates a password reset token for a given User.
func MakePasswordResetToken(usr User) string {
	return makeTokenWithTimestamp(usr, purposePasswordReset, numDaysSince2001(nowFunc()))
}

// MakeEmailVerificationToken generates an email verification token for a given User.
func MakeEmailVerificationToken(usr User) string {
	return makeTokenWithTimestamp(usr, purposeEmailVerification, numDaysSince2001(nowFunc()))
}

func verifyPasswordResetToken(usr User, token string) error {
	return verifyToken(usr, purposePasswordReset, token, passwordResetTimeoutDelta)
}

func verifyEmailVerificationToken(usr User, token string) error {
	return verifyToken(usr, purposeEmailVerification, token, emailVerificationTimeoutDelta)
}

func verifyToken(usr User, purpose tokenPurpose, token string, timeout time.Duration) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}
	tsB32 := parts[0]

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(tsB32)
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken := makeTokenWithTimestamp(usr, purpose, ts)
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(time.Now()) - ts) > int(timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func makeTokenWithTimestamp(usr User, purpose tokenPurpose, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, sign(hashValue(usr, purpose, ts)))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func sign(val []byte) string {
	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func hashValue(usr User, purpose tokenPurpose, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.WriteString(string(purpose))
	switch purpose {
	case purposeEmailVerification:
		// flips on verification; token dies with the state change
		val.WriteString(usr.Email)
		val.WriteString(strconv.FormatBool(usr.EmailVerified))
	default:
		val.Write(usr.PasswordHash)
		if !usr.LastLogin.IsZero() {
			val.WriteString(usr.LastLogin.String())
		}
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
