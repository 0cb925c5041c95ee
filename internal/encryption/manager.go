package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"citizen-auth/internal/config"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// PlaintextKeyID marks values stored unencrypted when KMS is disabled
// (development environments).
const PlaintextKeyID = "plaintext"

// EncryptionManager envelope-encrypts PII fields: a KMS-generated data key
// encrypts the value with AES-GCM, and the encrypted data key travels with
// the ciphertext. Decrypted data keys are cached per key id.
type EncryptionManager struct {
	kmsClient *kms.Client
	config    *config.Config
	keyCache  sync.Map // key id -> plaintext DEK
}

func NewEncryptionManager(cfg *config.Config, kmsClient *kms.Client) *EncryptionManager {
	return &EncryptionManager{
		kmsClient: kmsClient,
		config:    cfg,
	}
}

// EncryptPII encrypts a PII value, returning the ciphertext blob and the key
// id needed to decrypt it. With KMS disabled the value is stored as-is under
// the plaintext key id.
func (em *EncryptionManager) EncryptPII(ctx context.Context, plaintext string) ([]byte, string, error) {
	if !em.config.KMS.Enabled || em.kmsClient == nil {
		return []byte(plaintext), PlaintextKeyID, nil
	}

	out, err := em.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(em.config.KMS.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: generate data key: %v", ErrEncryptionFailed, err)
	}

	sealed, err := sealAESGCM(out.Plaintext, []byte(plaintext))
	if err != nil {
		return nil, "", err
	}

	keyID := base64.RawStdEncoding.EncodeToString(out.CiphertextBlob)
	em.keyCache.Store(keyID, out.Plaintext)

	return sealed, keyID, nil
}

// DecryptPII reverses EncryptPII given the stored ciphertext and key id.
func (em *EncryptionManager) DecryptPII(ctx context.Context, ciphertext []byte, keyID string) (string, error) {
	if keyID == PlaintextKeyID {
		return string(ciphertext), nil
	}
	if em.kmsClient == nil {
		return "", fmt.Errorf("%w: kms client not configured", ErrDecryptionFailed)
	}

	dek, err := em.dataKey(ctx, keyID)
	if err != nil {
		return "", err
	}

	plain, err := openAESGCM(dek, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// ClearCache drops cached plaintext data keys.
func (em *EncryptionManager) ClearCache() {
	em.keyCache.Range(func(key, _ interface{}) bool {
		em.keyCache.Delete(key)
		return true
	})
}

func (em *EncryptionManager) dataKey(ctx context.Context, keyID string) ([]byte, error) {
	if cached, ok := em.keyCache.Load(keyID); ok {
		return cached.([]byte), nil
	}

	blob, err := base64.RawStdEncoding.DecodeString(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed key id", ErrDecryptionFailed)
	}

	out, err := em.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: blob,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt data key: %v", ErrDecryptionFailed, err)
	}

	em.keyCache.Store(keyID, out.Plaintext)
	return out.Plaintext, nil
}

func sealAESGCM(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func openAESGCM(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plain, nil
}
