// Package query 提供问答平台的链上查询门面
//
// 读路径：缓存优先，未命中经传输层发只读合约调用，解码后短TTL缓存。
// 写路径：编码调用数据交会话签名广播，拿到交易哈希即失效相关缓存。
// 读调用可以跨端点重试；写调用一次定音，绝不静默重发。
package query

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/asaskevich/EventBus"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vequora/client-sdk-go/core/abi"
	"github.com/vequora/client-sdk-go/core/amount"
	"github.com/vequora/client-sdk-go/core/domain"
	"github.com/vequora/client-sdk-go/core/session"
	"github.com/vequora/client-sdk-go/core/transport"
	"github.com/vequora/client-sdk-go/pkg/ux/ui"
)

var (
	// ErrNotFound 查询的实体不存在（合约getter回滚）
	ErrNotFound = errors.New("not found")
)

// 事件主题
const (
	// TopicTxSubmitted 交易已广播（载荷 *TxSubmittedEvent）
	TopicTxSubmitted = "tx.submitted"

	// TopicCacheInvalidated 缓存已失效（载荷 []string 失效前缀）
	TopicCacheInvalidated = "cache.invalidated"
)

// TxSubmittedEvent 交易广播事件载荷
type TxSubmittedEvent struct {
	TxHash     string            `json:"tx_hash"`
	Action     domain.ActionKind `json:"action"`
	QuestionID uint64            `json:"question_id,omitempty"`
	AnswerID   uint64            `json:"answer_id,omitempty"`
}

// Signer 写路径的签名抽象（通常由 *session.Session 实现）
type Signer interface {
	SignAndSend(ctx context.Context, payload *session.TxPayload) (string, error)
}

// Facade 链上问答数据门面
type Facade struct {
	client   transport.Client
	signer   Signer
	cache    *Cache
	bus      EventBus.Bus
	logger   ui.Logger
	contract string // 问答合约地址
}

// New 创建查询门面
// cache/bus/logger 均可为 nil；signer 为 nil 时写操作返回 ErrNotConnected
func New(client transport.Client, signer Signer, contractAddr string, cache *Cache, bus EventBus.Bus, logger ui.Logger) *Facade {
	if logger == nil {
		logger = ui.NoopLogger()
	}
	return &Facade{
		client:   client,
		signer:   signer,
		cache:    cache,
		bus:      bus,
		logger:   logger,
		contract: contractAddr,
	}
}

// ===== 读路径 =====

// PlatformStats 查询平台统计
func (f *Facade) PlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	var stats domain.PlatformStats
	if f.cacheGet(cacheKeyStats, &stats) {
		return &stats, nil
	}

	output, err := f.staticCall(ctx, "getPlatformStats")
	if err != nil {
		return nil, err
	}
	decoded, err := abi.DecodePlatformStats(output)
	if err != nil {
		return nil, fmt.Errorf("getPlatformStats: %w", err)
	}

	f.cacheSet(cacheKeyStats, decoded)
	return decoded, nil
}

// Question 按ID查询问题
// 问题不存在返回 ErrNotFound
func (f *Facade) Question(ctx context.Context, id uint64) (*domain.Question, error) {
	key := questionKey(id)
	var q domain.Question
	if f.cacheGet(key, &q) {
		return &q, nil
	}

	output, err := f.staticCall(ctx, "getQuestion", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	decoded, err := abi.DecodeQuestion(output)
	if err != nil {
		return nil, fmt.Errorf("getQuestion(%d): %w", id, err)
	}

	f.cacheSet(key, decoded)
	return decoded, nil
}

// Answer 按ID查询答案
func (f *Facade) Answer(ctx context.Context, id uint64) (*domain.Answer, error) {
	key := answerKey(id)
	var a domain.Answer
	if f.cacheGet(key, &a) {
		return &a, nil
	}

	output, err := f.staticCall(ctx, "getAnswer", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	decoded, err := abi.DecodeAnswer(output)
	if err != nil {
		return nil, fmt.Errorf("getAnswer(%d): %w", id, err)
	}

	f.cacheSet(key, decoded)
	return decoded, nil
}

// QuestionAnswers 查询某问题的全部答案（按答案ID升序）
//
// 单个答案解码失败整体报错，绝不返回占位答案冒充真实数据。
func (f *Facade) QuestionAnswers(ctx context.Context, questionID uint64) ([]*domain.Answer, error) {
	key := questionAnswersKey(questionID)
	var cached []*domain.Answer
	if f.cacheGet(key, &cached) {
		return cached, nil
	}

	output, err := f.staticCall(ctx, "getQuestionAnswers", new(big.Int).SetUint64(questionID))
	if err != nil {
		return nil, err
	}
	ids, err := abi.DecodeAnswerIDs(output)
	if err != nil {
		return nil, fmt.Errorf("getQuestionAnswers(%d): %w", questionID, err)
	}

	answers := make([]*domain.Answer, 0, len(ids))
	for _, id := range ids {
		a, err := f.Answer(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("answer %d of question %d: %w", id, questionID, err)
		}
		answers = append(answers, a)
	}

	f.cacheSet(key, answers)
	return answers, nil
}

// AllQuestions 枚举全部问题（ID从1到统计计数，升序）
//
// ID空间允许有洞：getter回滚(ErrNotFound)的条目跳过并记录。
// RPC或解码失败必须上抛，绝不把被截断的列表当成功结果返回，
// 否则调用方无法区分「问题少」和「节点坏了」。
func (f *Facade) AllQuestions(ctx context.Context) ([]*domain.Question, error) {
	stats, err := f.PlatformStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate questions: %w", err)
	}

	questions := make([]*domain.Question, 0, stats.TotalQuestions)
	for id := uint64(1); id <= stats.TotalQuestions; id++ {
		q, err := f.Question(ctx, id)
		if errors.Is(err, ErrNotFound) {
			f.logger.Debugf("question %d skipped: %v", id, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("enumerate questions: question %d: %w", id, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// User 查询用户档案
func (f *Facade) User(ctx context.Context, address string) (*domain.User, error) {
	addr, ok := domain.NormalizeAddress(address)
	if !ok {
		return nil, fmt.Errorf("invalid address: %s", address)
	}

	key := userKey(addr)
	var u domain.User
	if f.cacheGet(key, &u) {
		return &u, nil
	}

	output, err := f.staticCall(ctx, "getUser", common.HexToAddress(addr))
	if err != nil {
		return nil, err
	}
	decoded, err := abi.DecodeUser(output)
	if err != nil {
		return nil, fmt.Errorf("getUser(%s): %w", addr, err)
	}

	f.cacheSet(key, decoded)
	return decoded, nil
}

// Balance 查询账户VQR余额
func (f *Facade) Balance(ctx context.Context, address string) (*amount.Amount, error) {
	addr, ok := domain.NormalizeAddress(address)
	if !ok {
		return nil, fmt.Errorf("invalid address: %s", address)
	}

	balance, err := f.client.GetBalance(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", addr, err)
	}
	return amount.FromBaseUnits(balance.Value)
}

// ===== 写路径 =====

// AskQuestion 提问（悬赏随交易转入合约）
func (f *Facade) AskQuestion(ctx context.Context, title, description string, tags []string, bounty *amount.Amount) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	if bounty == nil {
		bounty = amount.Zero()
	}
	data, err := abi.Encode("askQuestion", title, description, tags, bounty.BigInt())
	if err != nil {
		return "", err
	}
	return f.submit(ctx, data, bounty, &TxSubmittedEvent{Action: domain.ActionAskQuestion})
}

// SubmitAnswer 提交答案
func (f *Facade) SubmitAnswer(ctx context.Context, questionID uint64, content string) (string, error) {
	data, err := abi.Encode("submitAnswer", new(big.Int).SetUint64(questionID), content)
	if err != nil {
		return "", err
	}
	return f.submit(ctx, data, amount.Zero(), &TxSubmittedEvent{
		Action:     domain.ActionSubmitAnswer,
		QuestionID: questionID,
	})
}

// UpvoteAnswer 点赞答案（可附带小费）
func (f *Facade) UpvoteAnswer(ctx context.Context, questionID, answerID uint64, tip *amount.Amount) (string, error) {
	if tip == nil {
		tip = amount.Zero()
	}
	data, err := abi.Encode("upvoteAnswer", new(big.Int).SetUint64(answerID))
	if err != nil {
		return "", err
	}
	return f.submit(ctx, data, tip, &TxSubmittedEvent{
		Action:     domain.ActionUpvote,
		QuestionID: questionID,
		AnswerID:   answerID,
	})
}

// ApproveAnswer 批准答案（触发悬赏结算）
func (f *Facade) ApproveAnswer(ctx context.Context, questionID, answerID uint64) (string, error) {
	data, err := abi.Encode("approveAnswer", new(big.Int).SetUint64(questionID), new(big.Int).SetUint64(answerID))
	if err != nil {
		return "", err
	}
	return f.submit(ctx, data, amount.Zero(), &TxSubmittedEvent{
		Action:     domain.ActionApprove,
		QuestionID: questionID,
		AnswerID:   answerID,
	})
}

// submit 签名广播并失效缓存
//
// 签名器只调用一次：失败原样上抛，由调用者决定是否重试，
// 避免「用户看到失败、交易实际上链」的双花观感。
func (f *Facade) submit(ctx context.Context, data []byte, value *amount.Amount, event *TxSubmittedEvent) (string, error) {
	if f.signer == nil {
		return "", session.ErrNotConnected
	}

	payload := &session.TxPayload{
		To:   f.contract,
		Data: "0x" + hex.EncodeToString(data),
	}
	if !value.IsZero() {
		payload.Value = value.BaseUnits()
	}

	txHash, err := f.signer.SignAndSend(ctx, payload)
	if err != nil {
		return "", err
	}

	event.TxHash = txHash
	f.invalidateFor(event)
	if f.bus != nil {
		f.bus.Publish(TopicTxSubmitted, event)
	}
	f.logger.Infof("tx submitted: %s (%s)", txHash, event.Action)
	return txHash, nil
}

// invalidateFor 按动作失效相关缓存
// 统计永远失效；涉及具体问题时连同该问题的全部视图一起失效。
func (f *Facade) invalidateFor(event *TxSubmittedEvent) {
	if f.cache == nil {
		return
	}

	prefixes := []string{cacheKeyStats}
	if event.QuestionID != 0 {
		prefixes = append(prefixes, questionKey(event.QuestionID))
	}
	if event.AnswerID != 0 {
		prefixes = append(prefixes, answerKey(event.AnswerID))
	}

	for _, prefix := range prefixes {
		f.cache.InvalidatePrefix(prefix)
	}
	if f.bus != nil {
		f.bus.Publish(TopicCacheInvalidated, prefixes)
	}
}

// ===== 内部辅助 =====

const cacheKeyStats = "stats"

func questionKey(id uint64) string        { return fmt.Sprintf("question:%d", id) }
func questionAnswersKey(id uint64) string { return fmt.Sprintf("question:%d:answers", id) }
func answerKey(id uint64) string          { return fmt.Sprintf("answer:%d", id) }
func userKey(addr string) string          { return "user:" + strings.ToLower(addr) }

// staticCall 发起只读合约调用并返回解码前的原始输出
// 合约回滚映射为 ErrNotFound（getter回滚即实体不存在）
func (f *Facade) staticCall(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := abi.Encode(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := f.client.CallContract(ctx, &transport.CallRequest{
		To:   f.contract,
		Data: "0x" + hex.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if result.Reverted {
		return nil, fmt.Errorf("%w: %s reverted: %s", ErrNotFound, method, result.VMError)
	}

	output := strings.TrimPrefix(result.Output, "0x")
	raw, err := hex.DecodeString(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: malformed output hex", abi.ErrDecode, method)
	}
	return raw, nil
}

// cacheGet 缓存读取并反序列化；任何失败都视为未命中
func (f *Facade) cacheGet(key string, out interface{}) bool {
	if f.cache == nil {
		return false
	}
	data, ok := f.cache.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		f.logger.Debugf("cache entry %s corrupt, dropping: %v", key, err)
		f.cache.Delete(key)
		return false
	}
	return true
}

// cacheSet 序列化并写入缓存；失败只记日志
func (f *Facade) cacheSet(key string, value interface{}) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		f.logger.Debugf("cache marshal %s: %v", key, err)
		return
	}
	f.cache.Set(key, data)
}
