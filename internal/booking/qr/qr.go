package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"ms-booking/internal/models"

	"github.com/skip2/go-qrcode"
)

// Generator renders a booking confirmation as a QR code. The payload is
// AES-encrypted so gate scanners holding the secret can verify it offline.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

// payload is what ends up inside the QR code.
type payload struct {
	BookingID string               `json:"booking_id"`
	EventID   string               `json:"event_id"`
	UserID    string               `json:"user_id"`
	Quantity  int                  `json:"quantity"`
	Status    models.BookingStatus `json:"status"`
	IssuedAt  time.Time            `json:"issued_at"`
}

// GenerateBookingQR returns a 256px PNG encoding the encrypted booking
// reference.
func (g *Generator) GenerateBookingQR(booking models.Booking) ([]byte, error) {
	data, err := json.Marshal(payload{
		BookingID: booking.ID,
		EventID:   booking.EventID,
		UserID:    booking.UserID,
		Quantity:  booking.Quantity,
		Status:    booking.Status,
		IssuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
