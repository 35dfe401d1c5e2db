package query

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vequora/client-sdk-go/core/abi"
	"github.com/vequora/client-sdk-go/core/amount"
	"github.com/vequora/client-sdk-go/core/session"
	"github.com/vequora/client-sdk-go/core/transport"
)

const contractAddr = "0x89e658faf20b7cc6b7d6993bdd99eeabba1ba1d3"

// fakeChain 测试用链桩：按方法名路由只读调用
type fakeChain struct {
	transport.Client

	calls   atomic.Int64
	handler func(method string, args []interface{}) (*transport.CallResult, error)

	txs map[string]*transport.Transaction
}

func (f *fakeChain) CallContract(_ context.Context, call *transport.CallRequest) (*transport.CallResult, error) {
	f.calls.Add(1)
	data, err := hex.DecodeString(strings.TrimPrefix(call.Data, "0x"))
	if err != nil {
		return nil, err
	}
	method, args, err := abi.DecodeCall(data)
	if err != nil {
		return nil, err
	}
	return f.handler(method, args)
}

func (f *fakeChain) GetTransaction(_ context.Context, hash string) (*transport.Transaction, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, transport.ErrTxNotFound
	}
	return tx, nil
}

// fakeSigner 记录载荷的签名桩
type fakeSigner struct {
	payloads []*session.TxPayload
	txHash   string
	hashes   []string // 非空时按序出队，每笔交易拿到不同哈希
	err      error
}

func (f *fakeSigner) SignAndSend(_ context.Context, p *session.TxPayload) (string, error) {
	f.payloads = append(f.payloads, p)
	if f.err != nil {
		return "", f.err
	}
	if len(f.hashes) > 0 {
		h := f.hashes[0]
		f.hashes = f.hashes[1:]
		return h, nil
	}
	return f.txHash, nil
}

// packed 打包方法返回值为CallResult
func packed(t *testing.T, method string, values ...interface{}) *transport.CallResult {
	t.Helper()
	data, err := abi.EncodeReturn(method, values...)
	if err != nil {
		t.Fatalf("encode return %s: %v", method, err)
	}
	return &transport.CallResult{Output: "0x" + hex.EncodeToString(data)}
}

func questionReturn(t *testing.T, id uint64, title string) []interface{} {
	t.Helper()
	return []interface{}{
		new(big.Int).SetUint64(id),
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		title,
		"description",
		big.NewInt(100000000000000000),
		true,
		false,
		big.NewInt(0),
		big.NewInt(2),
		[]string{"go", "vequora"},
		big.NewInt(1756500000),
	}
}

func newFacade(chain *fakeChain, signer Signer, cache *Cache, bus EventBus.Bus) *Facade {
	return New(chain, signer, contractAddr, cache, bus, nil)
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(CacheConfig{TTL: time.Minute}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestQuestion(t *testing.T) {
	chain := &fakeChain{handler: func(method string, args []interface{}) (*transport.CallResult, error) {
		if method != "getQuestion" {
			t.Fatalf("unexpected method %s", method)
		}
		id := args[0].(*big.Int).Uint64()
		return packed(t, "getQuestion", questionReturn(t, id, "How do channels work?")...), nil
	}}

	f := newFacade(chain, nil, nil, nil)
	q, err := f.Question(context.Background(), 7)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if q.ID != 7 || q.Title != "How do channels work?" || q.Bounty != "100000000000000000" {
		t.Errorf("unexpected question: %+v", q)
	}
	if len(q.Tags) != 2 {
		t.Errorf("Tags = %v", q.Tags)
	}
}

// getter回滚意味着实体不存在
func TestQuestionNotFound(t *testing.T) {
	chain := &fakeChain{handler: func(string, []interface{}) (*transport.CallResult, error) {
		return &transport.CallResult{Reverted: true, VMError: "question does not exist"}, nil
	}}

	f := newFacade(chain, nil, nil, nil)
	_, err := f.Question(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// 损坏的返回数据必须报错，绝不返回占位对象
func TestQuestionCorruptOutput(t *testing.T) {
	chain := &fakeChain{handler: func(string, []interface{}) (*transport.CallResult, error) {
		return &transport.CallResult{Output: "0xdeadbe"}, nil // 非32字节对齐
	}}

	f := newFacade(chain, nil, nil, nil)
	q, err := f.Question(context.Background(), 1)
	if !errors.Is(err, abi.ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
	if q != nil {
		t.Errorf("q = %+v, want nil on decode failure", q)
	}
}

func TestQuestionCacheHit(t *testing.T) {
	chain := &fakeChain{handler: func(method string, args []interface{}) (*transport.CallResult, error) {
		return packed(t, "getQuestion", questionReturn(t, args[0].(*big.Int).Uint64(), "t")...), nil
	}}

	f := newFacade(chain, nil, newTestCache(t), nil)
	for i := 0; i < 3; i++ {
		if _, err := f.Question(context.Background(), 1); err != nil {
			t.Fatal(err)
		}
	}
	if got := chain.calls.Load(); got != 1 {
		t.Errorf("chain calls = %d, want 1 (cache should serve repeats)", got)
	}
}

func TestQuestionAnswers(t *testing.T) {
	chain := &fakeChain{handler: func(method string, args []interface{}) (*transport.CallResult, error) {
		switch method {
		case "getQuestionAnswers":
			return packed(t, "getQuestionAnswers", []*big.Int{big.NewInt(3), big.NewInt(5)}), nil
		case "getAnswer":
			id := args[0].(*big.Int)
			return packed(t, "getAnswer",
				id,
				big.NewInt(1),
				common.HexToAddress("0x2222222222222222222222222222222222222222"),
				"because goroutines",
				big.NewInt(1),
				id.Uint64() == 3, // 答案3已批准
				big.NewInt(1756500000),
			), nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	}}

	f := newFacade(chain, nil, nil, nil)
	answers, err := f.QuestionAnswers(context.Background(), 1)
	if err != nil {
		t.Fatalf("QuestionAnswers: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("len = %d, want 2", len(answers))
	}
	if answers[0].ID != 3 || !answers[0].IsApproved {
		t.Errorf("answers[0] = %+v", answers[0])
	}
	if answers[1].ID != 5 || answers[1].IsApproved {
		t.Errorf("answers[1] = %+v", answers[1])
	}
}

// 枚举容忍ID空间的洞：getter回滚的条目跳过，不中断也不填占位
func TestAllQuestionsSkipsBadEntries(t *testing.T) {
	chain := &fakeChain{handler: func(method string, args []interface{}) (*transport.CallResult, error) {
		switch method {
		case "getPlatformStats":
			return packed(t, "getPlatformStats", big.NewInt(3), big.NewInt(0), big.NewInt(1)), nil
		case "getQuestion":
			id := args[0].(*big.Int).Uint64()
			if id == 2 {
				return &transport.CallResult{Reverted: true, VMError: "gone"}, nil
			}
			return packed(t, "getQuestion", questionReturn(t, id, "t")...), nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	}}

	f := newFacade(chain, nil, nil, nil)
	questions, err := f.AllQuestions(context.Background())
	if err != nil {
		t.Fatalf("AllQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("len = %d, want 2", len(questions))
	}
	if questions[0].ID != 1 || questions[1].ID != 3 {
		t.Errorf("ids = %d, %d", questions[0].ID, questions[1].ID)
	}
}

// 节点故障或数据损坏时必须上抛，绝不静默返回截断列表
func TestAllQuestionsPropagatesFailures(t *testing.T) {
	statsResult := func() (*transport.CallResult, error) {
		return packed(t, "getPlatformStats", big.NewInt(3), big.NewInt(0), big.NewInt(1)), nil
	}

	t.Run("rpc失败", func(t *testing.T) {
		nodeDown := fmt.Errorf("%w: node unreachable", transport.ErrRPC)
		chain := &fakeChain{handler: func(method string, args []interface{}) (*transport.CallResult, error) {
			if method == "getPlatformStats" {
				return statsResult()
			}
			return nil, nodeDown
		}}

		f := newFacade(chain, nil, nil, nil)
		questions, err := f.AllQuestions(context.Background())
		if !errors.Is(err, transport.ErrRPC) {
			t.Fatalf("err = %v, want ErrRPC propagated", err)
		}
		if questions != nil {
			t.Errorf("questions = %v, want nil on failure", questions)
		}
	})

	t.Run("解码失败", func(t *testing.T) {
		chain := &fakeChain{handler: func(method string, args []interface{}) (*transport.CallResult, error) {
			if method == "getPlatformStats" {
				return statsResult()
			}
			return &transport.CallResult{Output: "0xdeadbe"}, nil // 非32字节对齐
		}}

		f := newFacade(chain, nil, nil, nil)
		if _, err := f.AllQuestions(context.Background()); !errors.Is(err, abi.ErrDecode) {
			t.Fatalf("err = %v, want ErrDecode propagated", err)
		}
	})
}

func TestSubmitRequiresSigner(t *testing.T) {
	f := newFacade(&fakeChain{}, nil, nil, nil)
	_, err := f.SubmitAnswer(context.Background(), 1, "answer")
	if !errors.Is(err, session.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

// 提问：悬赏作为交易金额附带，调用数据可反解为askQuestion
func TestAskQuestionPayload(t *testing.T) {
	signer := &fakeSigner{txHash: "0xbeef"}
	f := newFacade(&fakeChain{}, signer, nil, nil)

	bounty, err := amount.Parse("0.1")
	if err != nil {
		t.Fatal(err)
	}
	hash, err := f.AskQuestion(context.Background(), "T", "D", []string{"go"}, bounty)
	if err != nil {
		t.Fatalf("AskQuestion: %v", err)
	}
	if hash != "0xbeef" {
		t.Errorf("hash = %q", hash)
	}
	if len(signer.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(signer.payloads))
	}

	p := signer.payloads[0]
	if p.To != contractAddr {
		t.Errorf("To = %q", p.To)
	}
	if p.Value != "100000000000000000" {
		t.Errorf("Value = %q, want bounty in base units", p.Value)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(p.Data, "0x"))
	if err != nil {
		t.Fatal(err)
	}
	method, args, err := abi.DecodeCall(data)
	if err != nil || method != "askQuestion" {
		t.Fatalf("DecodeCall = (%s, %v)", method, err)
	}
	if args[0].(string) != "T" {
		t.Errorf("title arg = %v", args[0])
	}
}

// 交易哈希一到手，相关问题和统计的缓存立即失效
func TestSubmitInvalidatesCache(t *testing.T) {
	chain := &fakeChain{handler: func(method string, args []interface{}) (*transport.CallResult, error) {
		switch method {
		case "getQuestion":
			return packed(t, "getQuestion", questionReturn(t, args[0].(*big.Int).Uint64(), "t")...), nil
		case "getPlatformStats":
			return packed(t, "getPlatformStats", big.NewInt(1), big.NewInt(0), big.NewInt(1)), nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	}}

	f := newFacade(chain, &fakeSigner{txHash: "0xbeef"}, newTestCache(t), nil)
	ctx := context.Background()

	// 预热缓存
	if _, err := f.Question(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.PlatformStats(ctx); err != nil {
		t.Fatal(err)
	}
	warm := chain.calls.Load()

	if _, err := f.SubmitAnswer(ctx, 1, "a"); err != nil {
		t.Fatal(err)
	}

	// 失效后重新查链
	if _, err := f.Question(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.PlatformStats(ctx); err != nil {
		t.Fatal(err)
	}
	if got := chain.calls.Load(); got != warm+2 {
		t.Errorf("chain calls after submit = %d, want %d (cache invalidated)", got, warm+2)
	}
}

// 签名失败原样上抛，不静默重试
func TestSubmitFailureSingleAttempt(t *testing.T) {
	signer := &fakeSigner{err: errors.New("agent timeout")}
	f := newFacade(&fakeChain{}, signer, nil, nil)

	_, err := f.SubmitAnswer(context.Background(), 1, "a")
	if err == nil {
		t.Fatal("want error")
	}
	if len(signer.payloads) != 1 {
		t.Errorf("sign attempts = %d, want exactly 1", len(signer.payloads))
	}
}

// 背靠背两次点赞各自独立成一笔交易：各提交一次，哈希互不相同
func TestUpvoteTwiceSubmitsTwice(t *testing.T) {
	signer := &fakeSigner{hashes: []string{"0xaaa", "0xbbb"}}
	f := newFacade(&fakeChain{}, signer, nil, nil)
	ctx := context.Background()

	h1, err := f.UpvoteAnswer(ctx, 1, 9, amount.Zero())
	if err != nil {
		t.Fatalf("first upvote: %v", err)
	}
	h2, err := f.UpvoteAnswer(ctx, 1, 9, amount.Zero())
	if err != nil {
		t.Fatalf("second upvote: %v", err)
	}

	if len(signer.payloads) != 2 {
		t.Fatalf("sign attempts = %d, want 2 (one per upvote)", len(signer.payloads))
	}
	if h1 == h2 {
		t.Errorf("tx hashes identical (%s), want distinct transactions", h1)
	}
}

func TestTxSubmittedEvent(t *testing.T) {
	bus := EventBus.New()
	var got *TxSubmittedEvent
	if err := bus.Subscribe(TopicTxSubmitted, func(e *TxSubmittedEvent) { got = e }); err != nil {
		t.Fatal(err)
	}

	f := newFacade(&fakeChain{}, &fakeSigner{txHash: "0xbeef"}, nil, bus)
	if _, err := f.ApproveAnswer(context.Background(), 2, 9); err != nil {
		t.Fatal(err)
	}

	bus.WaitAsync()
	if got == nil {
		t.Fatal("no event published")
	}
	if got.TxHash != "0xbeef" || got.QuestionID != 2 || got.AnswerID != 9 {
		t.Errorf("event = %+v", got)
	}
}

func TestWaitForTx(t *testing.T) {
	chain := &fakeChain{txs: map[string]*transport.Transaction{
		"0xok":  {Hash: "0xok", Status: "confirmed"},
		"0xrev": {Hash: "0xrev", Status: "reverted"},
	}}
	f := newFacade(chain, nil, nil, nil)
	ctx := context.Background()

	opts := ConfirmOptions{Timeout: 200 * time.Millisecond, Interval: 10 * time.Millisecond}

	tx, err := f.WaitForTx(ctx, "0xok", opts)
	if err != nil || !tx.Confirmed() {
		t.Errorf("WaitForTx confirmed = (%+v, %v)", tx, err)
	}

	if _, err := f.WaitForTx(ctx, "0xrev", opts); !errors.Is(err, ErrTxReverted) {
		t.Errorf("err = %v, want ErrTxReverted", err)
	}

	// 一直查不到：窗口耗尽后结果未知，而不是失败
	if _, err := f.WaitForTx(ctx, "0xmissing", opts); !errors.Is(err, ErrOutcomeUnknown) {
		t.Errorf("err = %v, want ErrOutcomeUnknown", err)
	}
}

func TestCacheInvalidatePrefix(t *testing.T) {
	cache := newTestCache(t)
	cache.Set("question:1", []byte("a"))
	cache.Set("question:1:answers", []byte("b"))
	cache.Set("question:12", []byte("c"))
	cache.Set("stats", []byte("d"))

	n := cache.InvalidatePrefix("question:1")
	if n != 2 {
		t.Errorf("invalidated = %d, want 2", n)
	}
	if _, ok := cache.Get("question:1"); ok {
		t.Error("question:1 should be gone")
	}
	if _, ok := cache.Get("question:1:answers"); ok {
		t.Error("question:1:answers should be gone")
	}
	// 以冒号为界，相邻ID不受牵连
	if _, ok := cache.Get("question:12"); !ok {
		t.Error("question:12 should survive")
	}
	if _, ok := cache.Get("stats"); !ok {
		t.Error("stats should survive")
	}
}
