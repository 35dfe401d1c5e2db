package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/vequora/client-sdk-go/core/domain"
	"github.com/vequora/client-sdk-go/core/transport"
)

// KeystoreV1 Keystore文件格式(v1.0.0)
type KeystoreV1 struct {
	Version string   `json:"version"` // "1.0.0"
	ID      string   `json:"id"`      // UUID
	Address string   `json:"address"` // 0x...
	Crypto  CryptoV1 `json:"crypto"`

	// 元数据
	CreatedAt string `json:"created_at"`
	Label     string `json:"label,omitempty"`
}

// CryptoV1 加密参数
type CryptoV1 struct {
	Cipher       string       `json:"cipher"`     // "aes-256-gcm"
	Ciphertext   string       `json:"ciphertext"` // hex编码
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "pbkdf2"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // hex编码的MAC
}

// CipherParams 密码参数
type CipherParams struct {
	IV string `json:"iv"` // hex编码的初始化向量
}

// KDFParams 密钥派生参数
type KDFParams struct {
	DKLen int    `json:"dklen"` // 派生密钥长度(32)
	Salt  string `json:"salt"`  // hex编码的盐值
	C     int    `json:"c"`     // 迭代次数
	PRF   string `json:"prf"`   // "hmac-sha256"
}

// pbkdf2Iterations PBKDF2推荐迭代次数
const pbkdf2Iterations = 262144

// KeystoreProvider 本地keystore提供方（开发/脚本场景）
//
// 私钥从keystore文件解锁到内存，签名在本进程内完成，
// 签好的交易经节点传输层广播。生产用户走外部钱包代理。
type KeystoreProvider struct {
	path       string
	passphrase func() (string, error)
	client     transport.Client

	address    string
	privateKey *ecdsa.PrivateKey
}

// NewKeystoreProvider 创建keystore提供方
// passphrase 在首次需要解锁时调用（允许接终端交互式输入）
func NewKeystoreProvider(path string, passphrase func() (string, error), client transport.Client) *KeystoreProvider {
	return &KeystoreProvider{
		path:       path,
		passphrase: passphrase,
		client:     client,
	}
}

// Name 实现 Provider
func (k *KeystoreProvider) Name() string {
	return "keystore"
}

// Available keystore文件存在即视为可用（解锁推迟到授权时）
func (k *KeystoreProvider) Available(_ context.Context) bool {
	info, err := os.Stat(k.path)
	return err == nil && !info.IsDir()
}

// RequestAccount 解锁keystore并返回账户地址
// 口令错误映射为 ErrConnectionRejected
func (k *KeystoreProvider) RequestAccount(_ context.Context) (string, error) {
	if err := k.unlock(); err != nil {
		return "", err
	}
	return k.address, nil
}

// Accounts 列出账户（keystore只有一个）
func (k *KeystoreProvider) Accounts(_ context.Context) ([]string, error) {
	if k.address != "" {
		return []string{k.address}, nil
	}
	// 未解锁也能读地址字段（明文元数据）
	ks, err := k.readFile()
	if err != nil {
		return nil, err
	}
	addr := ks.Address
	if norm, ok := domain.NormalizeAddress(addr); ok {
		addr = norm
	}
	return []string{addr}, nil
}

// SignAndSend 本地签名并经节点广播
func (k *KeystoreProvider) SignAndSend(ctx context.Context, payload *TxPayload) (string, error) {
	if k.privateKey == nil {
		if err := k.unlock(); err != nil {
			return "", err
		}
	}

	raw, err := k.signPayload(payload)
	if err != nil {
		return "", err
	}

	result, err := k.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("broadcast: %w", err)
	}
	return result.TxHash, nil
}

// Lock 清除内存中的私钥
func (k *KeystoreProvider) Lock() {
	if k.privateKey != nil && k.privateKey.D != nil {
		k.privateKey.D.SetInt64(0)
	}
	k.privateKey = nil
}

// ===== 解锁与签名 =====

// signedEnvelope 签名交易信封（hex序列化后作为raw tx广播）
type signedEnvelope struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Data      string `json:"data"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"` // hex, 65字节 r||s||v
}

func (k *KeystoreProvider) signPayload(payload *TxPayload) (string, error) {
	env := &signedEnvelope{
		From:  k.address,
		To:    payload.To,
		Value: payload.Value,
		Data:  payload.Data,
		Nonce: uint64(time.Now().UnixNano()),
	}
	if env.Value == "" {
		env.Value = "0"
	}

	// 签名域：签名字段置空的规范JSON
	digestInput, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	digest := ethcrypto.Keccak256(digestInput)

	sig, err := ethcrypto.Sign(digest, k.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	env.Signature = hex.EncodeToString(sig)

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal signed envelope: %w", err)
	}
	return "0x" + hex.EncodeToString(raw), nil
}

func (k *KeystoreProvider) unlock() error {
	ks, err := k.readFile()
	if err != nil {
		return err
	}

	password, err := k.passphrase()
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}

	key, err := deriveKey(password, ks.Crypto)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	privateKeyBytes, err := decrypt(ks.Crypto, key)
	if err != nil {
		// GCM认证失败几乎总是口令错误
		return fmt.Errorf("%w: %v", ErrConnectionRejected, err)
	}

	privateKey, err := ethcrypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}

	k.privateKey = privateKey
	k.address = ethcrypto.PubkeyToAddress(privateKey.PublicKey).Hex()
	return nil
}

func (k *KeystoreProvider) readFile() (*KeystoreV1, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var ks KeystoreV1
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	return &ks, nil
}

// ===== Keystore加密/解密辅助函数 =====

// deriveKey 派生解密密钥
func deriveKey(password string, crypto CryptoV1) ([]byte, error) {
	salt, err := hex.DecodeString(crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}

	switch crypto.KDF {
	case "pbkdf2":
		return pbkdf2.Key(
			[]byte(password),
			salt,
			crypto.KDFParams.C,
			crypto.KDFParams.DKLen,
			sha256.New,
		), nil

	default:
		return nil, fmt.Errorf("unsupported KDF: %s", crypto.KDF)
	}
}

// decrypt 解密密文
func decrypt(crypto CryptoV1, key []byte) ([]byte, error) {
	ciphertext, err := hex.DecodeString(crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	iv, err := hex.DecodeString(crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}

	switch crypto.Cipher {
	case "aes-256-gcm":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("new cipher: %w", err)
		}

		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("new gcm: %w", err)
		}

		plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("gcm decrypt: %w (wrong password?)", err)
		}

		return plaintext, nil

	default:
		return nil, fmt.Errorf("unsupported cipher: %s", crypto.Cipher)
	}
}

// encrypt 加密明文
func encrypt(plaintext []byte, password string) (CryptoV1, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return CryptoV1{}, fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return CryptoV1{}, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return CryptoV1{}, fmt.Errorf("new gcm: %w", err)
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return CryptoV1{}, fmt.Errorf("generate iv: %w", err)
	}

	ciphertext := gcm.Seal(nil, iv, plaintext, nil)

	mac := sha256.Sum256(append(key[16:], ciphertext...))

	return CryptoV1{
		Cipher:     "aes-256-gcm",
		Ciphertext: hex.EncodeToString(ciphertext),
		CipherParams: CipherParams{
			IV: hex.EncodeToString(iv),
		},
		KDF: "pbkdf2",
		KDFParams: KDFParams{
			DKLen: 32,
			Salt:  hex.EncodeToString(salt),
			C:     pbkdf2Iterations,
			PRF:   "hmac-sha256",
		},
		MAC: hex.EncodeToString(mac[:]),
	}, nil
}

// SaveKeystore 生成keystore文件
func SaveKeystore(keystoreDir string, privateKey *ecdsa.PrivateKey, password string, label string) (string, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return "", fmt.Errorf("create keystore dir: %w", err)
	}

	privateKeyBytes := paddedBigBytes(privateKey.D, 32)

	crypto, err := encrypt(privateKeyBytes, password)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	address := strings.ToLower(ethcrypto.PubkeyToAddress(privateKey.PublicKey).Hex())

	keystore := KeystoreV1{
		Version:   "1.0.0",
		ID:        uuid.NewString(),
		Address:   address,
		Crypto:    crypto,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Label:     label,
	}

	data, err := json.MarshalIndent(keystore, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}

	// 文件名: UTC--<timestamp>--<address>
	filename := fmt.Sprintf("UTC--%s--%s",
		time.Now().UTC().Format("2006-01-02T15-04-05.000000000Z"),
		strings.TrimPrefix(address, "0x"),
	)
	filePath := filepath.Join(keystoreDir, filename)

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("write keystore: %w", err)
	}

	return filePath, nil
}

// paddedBigBytes 将big.Int转换为固定长度的字节数组
func paddedBigBytes(bigInt *big.Int, length int) []byte {
	bytes := bigInt.Bytes()
	if len(bytes) >= length {
		return bytes[len(bytes)-length:]
	}

	padded := make([]byte, length)
	copy(padded[length-len(bytes):], bytes)
	return padded
}

var _ Provider = (*KeystoreProvider)(nil)
var _ Provider = (*AgentProvider)(nil)
