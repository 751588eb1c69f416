package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// Cipher 负责消息内容的落库加密与读取解密（AES-256-GCM）。
// 密钥缺失时退化为明文直通，方便本地开发。
type Cipher struct {
	aead cipher.AEAD
}

var ErrBadKey = errors.New("message key must be 32 hex-encoded bytes")

// New 从 hex 编码的 32 字节密钥构造 Cipher；keyHex 为空时返回直通 Cipher。
func New(keyHex string) (*Cipher, error) {
	if keyHex == "" {
		return &Cipher{}, nil
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, ErrBadKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt 加密明文并返回 base64(nonce|ciphertext)；空串原样返回。
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || c.aead == nil {
		return plaintext, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密 Encrypt 的输出；空串直接短路，不触发解密。
func (c *Cipher) Decrypt(content string) (string, error) {
	if content == "" || c.aead == nil {
		return content, nil
	}
	sealed, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", err
	}
	ns := c.aead.NonceSize()
	if len(sealed) < ns {
		return "", errors.New("ciphertext too short")
	}
	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
