// Package abi 提供问答合约调用的ABI编解码
//
// 编码遵循标准合约ABI规则：静态类型按32字节槽打包，
// 动态类型(string/string[])采用 head偏移 + 长度前缀tail 编码。
// 具体打包/解包委托给 go-ethereum 的 accounts/abi 实现，
// 本包负责方法表、选择器路由和领域对象映射。
//
// 解码失败永远返回错误，不回退到占位数据：
// 调用方必须能区分「无数据」(ErrNoData)与「数据损坏」(ErrDecode)。
package abi

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vequora/client-sdk-go/core/domain"
)

// 问答合约ABI（唯一事实来源）
//
// 注意：downvoteAnswer 在合约中存在，但适配层不暴露任何降票操作
// （客户端模型中点赞数只增不减）。
const contractABI = `[
  {"type":"function","name":"askQuestion",
   "inputs":[
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"tags","type":"string[]"},
     {"name":"bounty","type":"uint256"}],
   "outputs":[{"name":"questionId","type":"uint256"}]},
  {"type":"function","name":"submitAnswer",
   "inputs":[
     {"name":"questionId","type":"uint256"},
     {"name":"content","type":"string"}],
   "outputs":[{"name":"answerId","type":"uint256"}]},
  {"type":"function","name":"upvoteAnswer",
   "inputs":[{"name":"answerId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"downvoteAnswer",
   "inputs":[{"name":"answerId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"approveAnswer",
   "inputs":[
     {"name":"questionId","type":"uint256"},
     {"name":"answerId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"getQuestion",
   "inputs":[{"name":"questionId","type":"uint256"}],
   "outputs":[
     {"name":"id","type":"uint256"},
     {"name":"asker","type":"address"},
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"bounty","type":"uint256"},
     {"name":"isActive","type":"bool"},
     {"name":"hasApprovedAnswer","type":"bool"},
     {"name":"approvedAnswerId","type":"uint256"},
     {"name":"upvotes","type":"uint256"},
     {"name":"tags","type":"string[]"},
     {"name":"timestamp","type":"uint256"}]},
  {"type":"function","name":"getAnswer",
   "inputs":[{"name":"answerId","type":"uint256"}],
   "outputs":[
     {"name":"id","type":"uint256"},
     {"name":"questionId","type":"uint256"},
     {"name":"answerer","type":"address"},
     {"name":"content","type":"string"},
     {"name":"upvotes","type":"uint256"},
     {"name":"isApproved","type":"bool"},
     {"name":"timestamp","type":"uint256"}]},
  {"type":"function","name":"getQuestionAnswers",
   "inputs":[{"name":"questionId","type":"uint256"}],
   "outputs":[{"name":"answerIds","type":"uint256[]"}]},
  {"type":"function","name":"getPlatformStats",
   "inputs":[],
   "outputs":[
     {"name":"totalQuestions","type":"uint256"},
     {"name":"totalAnswers","type":"uint256"},
     {"name":"totalUsers","type":"uint256"}]},
  {"type":"function","name":"getUser",
   "inputs":[{"name":"addr","type":"address"}],
   "outputs":[
     {"name":"userAddr","type":"address"},
     {"name":"questionsAsked","type":"uint256"},
     {"name":"answersGiven","type":"uint256"},
     {"name":"reputation","type":"uint256"},
     {"name":"registered","type":"bool"}]}
]`

var (
	// ErrEncode ABI编码失败
	ErrEncode = errors.New("abi encode failed")

	// ErrDecode ABI解码失败（数据截断或损坏）
	ErrDecode = errors.New("abi decode failed")

	// ErrNoData 无返回数据（与数据损坏严格区分）
	ErrNoData = errors.New("no return data")

	// ErrUnknownMethod 未知的合约方法
	ErrUnknownMethod = errors.New("unknown contract method")

	parseOnce sync.Once
	parsed    ethabi.ABI
	parseErr  error
)

// contract 返回解析后的ABI（只解析一次）
func contract() (ethabi.ABI, error) {
	parseOnce.Do(func() {
		parsed, parseErr = ethabi.JSON(strings.NewReader(contractABI))
	})
	return parsed, parseErr
}

// Encode 编码合约调用数据（4字节选择器 + ABI打包参数）
func Encode(name string, args ...interface{}) ([]byte, error) {
	c, err := contract()
	if err != nil {
		return nil, fmt.Errorf("%w: parse abi: %v", ErrEncode, err)
	}
	if _, ok := c.Methods[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	data, err := c.Pack(name, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, name, err)
	}
	return data, nil
}

// DecodeReturn 解码合约返回数据为输出元组
//
// 空数据返回 ErrNoData；长度非法或内容损坏返回 ErrDecode。
func DecodeReturn(name string, data []byte) ([]interface{}, error) {
	c, err := contract()
	if err != nil {
		return nil, fmt.Errorf("%w: parse abi: %v", ErrDecode, err)
	}
	method, ok := c.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	if len(method.Outputs) == 0 {
		return nil, nil
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, name)
	}
	if len(data)%32 != 0 {
		return nil, fmt.Errorf("%w: %s: return data length %d not slot-aligned", ErrDecode, name, len(data))
	}
	values, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	return values, nil
}

// EncodeReturn 按方法输出签名打包返回值
// DecodeReturn 的逆操作，供本地仿真与测试桩构造合约响应
func EncodeReturn(name string, values ...interface{}) ([]byte, error) {
	c, err := contract()
	if err != nil {
		return nil, fmt.Errorf("%w: parse abi: %v", ErrEncode, err)
	}
	method, ok := c.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	data, err := method.Outputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, name, err)
	}
	return data, nil
}

// DecodeCall 解码调用数据：按选择器路由到方法并解包输入参数
//
// 日志扫描器用它从原始交易输入中恢复真实的领域动作。
func DecodeCall(data []byte) (string, []interface{}, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("%w: call data shorter than selector", ErrDecode)
	}
	c, err := contract()
	if err != nil {
		return "", nil, fmt.Errorf("%w: parse abi: %v", ErrDecode, err)
	}
	method, err := c.MethodById(data[:4])
	if err != nil {
		return "", nil, fmt.Errorf("%w: selector %x", ErrUnknownMethod, data[:4])
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrDecode, method.Name, err)
	}
	return method.Name, args, nil
}

// Selector 返回方法的4字节选择器
func Selector(name string) ([4]byte, error) {
	var sel [4]byte
	c, err := contract()
	if err != nil {
		return sel, fmt.Errorf("%w: parse abi: %v", ErrEncode, err)
	}
	method, ok := c.Methods[name]
	if !ok {
		return sel, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	copy(sel[:], method.ID)
	return sel, nil
}

// ===== 领域对象映射 =====

// DecodeQuestion 解码 getQuestion 返回值
func DecodeQuestion(data []byte) (*domain.Question, error) {
	values, err := DecodeReturn("getQuestion", data)
	if err != nil {
		return nil, err
	}
	if len(values) != 11 {
		return nil, fmt.Errorf("%w: getQuestion returned %d values", ErrDecode, len(values))
	}

	q := &domain.Question{}
	var ok bool
	if q.ID, ok = asUint64(values[0]); !ok {
		return nil, fieldErr("getQuestion", "id")
	}
	asker, ok := values[1].(common.Address)
	if !ok {
		return nil, fieldErr("getQuestion", "asker")
	}
	q.Asker = asker.Hex()
	if q.Title, ok = values[2].(string); !ok {
		return nil, fieldErr("getQuestion", "title")
	}
	if q.Description, ok = values[3].(string); !ok {
		return nil, fieldErr("getQuestion", "description")
	}
	bounty, ok := values[4].(*big.Int)
	if !ok {
		return nil, fieldErr("getQuestion", "bounty")
	}
	q.Bounty = bounty.String()
	if q.IsActive, ok = values[5].(bool); !ok {
		return nil, fieldErr("getQuestion", "isActive")
	}
	if q.HasApprovedAnswer, ok = values[6].(bool); !ok {
		return nil, fieldErr("getQuestion", "hasApprovedAnswer")
	}
	if q.ApprovedAnswerID, ok = asUint64(values[7]); !ok {
		return nil, fieldErr("getQuestion", "approvedAnswerId")
	}
	if q.Upvotes, ok = asUint64(values[8]); !ok {
		return nil, fieldErr("getQuestion", "upvotes")
	}
	if q.Tags, ok = values[9].([]string); !ok {
		return nil, fieldErr("getQuestion", "tags")
	}
	if q.Timestamp, ok = asUint64(values[10]); !ok {
		return nil, fieldErr("getQuestion", "timestamp")
	}
	return q, nil
}

// DecodeAnswer 解码 getAnswer 返回值
func DecodeAnswer(data []byte) (*domain.Answer, error) {
	values, err := DecodeReturn("getAnswer", data)
	if err != nil {
		return nil, err
	}
	if len(values) != 7 {
		return nil, fmt.Errorf("%w: getAnswer returned %d values", ErrDecode, len(values))
	}

	a := &domain.Answer{}
	var ok bool
	if a.ID, ok = asUint64(values[0]); !ok {
		return nil, fieldErr("getAnswer", "id")
	}
	if a.QuestionID, ok = asUint64(values[1]); !ok {
		return nil, fieldErr("getAnswer", "questionId")
	}
	answerer, ok := values[2].(common.Address)
	if !ok {
		return nil, fieldErr("getAnswer", "answerer")
	}
	a.Answerer = answerer.Hex()
	if a.Content, ok = values[3].(string); !ok {
		return nil, fieldErr("getAnswer", "content")
	}
	if a.Upvotes, ok = asUint64(values[4]); !ok {
		return nil, fieldErr("getAnswer", "upvotes")
	}
	if a.IsApproved, ok = values[5].(bool); !ok {
		return nil, fieldErr("getAnswer", "isApproved")
	}
	if a.Timestamp, ok = asUint64(values[6]); !ok {
		return nil, fieldErr("getAnswer", "timestamp")
	}
	return a, nil
}

// DecodePlatformStats 解码 getPlatformStats 返回值
func DecodePlatformStats(data []byte) (*domain.PlatformStats, error) {
	values, err := DecodeReturn("getPlatformStats", data)
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("%w: getPlatformStats returned %d values", ErrDecode, len(values))
	}

	s := &domain.PlatformStats{}
	var ok bool
	if s.TotalQuestions, ok = asUint64(values[0]); !ok {
		return nil, fieldErr("getPlatformStats", "totalQuestions")
	}
	if s.TotalAnswers, ok = asUint64(values[1]); !ok {
		return nil, fieldErr("getPlatformStats", "totalAnswers")
	}
	if s.TotalUsers, ok = asUint64(values[2]); !ok {
		return nil, fieldErr("getPlatformStats", "totalUsers")
	}
	return s, nil
}

// DecodeUser 解码 getUser 返回值
func DecodeUser(data []byte) (*domain.User, error) {
	values, err := DecodeReturn("getUser", data)
	if err != nil {
		return nil, err
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("%w: getUser returned %d values", ErrDecode, len(values))
	}

	u := &domain.User{}
	addr, ok := values[0].(common.Address)
	if !ok {
		return nil, fieldErr("getUser", "userAddr")
	}
	u.Address = addr.Hex()
	if u.QuestionsAsked, ok = asUint64(values[1]); !ok {
		return nil, fieldErr("getUser", "questionsAsked")
	}
	if u.AnswersGiven, ok = asUint64(values[2]); !ok {
		return nil, fieldErr("getUser", "answersGiven")
	}
	if u.Reputation, ok = asUint64(values[3]); !ok {
		return nil, fieldErr("getUser", "reputation")
	}
	if u.Registered, ok = values[4].(bool); !ok {
		return nil, fieldErr("getUser", "registered")
	}
	return u, nil
}

// DecodeAnswerIDs 解码 getQuestionAnswers 返回值
func DecodeAnswerIDs(data []byte) ([]uint64, error) {
	values, err := DecodeReturn("getQuestionAnswers", data)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: getQuestionAnswers returned %d values", ErrDecode, len(values))
	}
	raw, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fieldErr("getQuestionAnswers", "answerIds")
	}
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		if !v.IsUint64() {
			return nil, fieldErr("getQuestionAnswers", "answerIds")
		}
		ids = append(ids, v.Uint64())
	}
	return ids, nil
}

// asUint64 从解包值提取uint64（合约计数器不会超过uint64范围）
func asUint64(v interface{}) (uint64, bool) {
	b, ok := v.(*big.Int)
	if !ok || !b.IsUint64() {
		return 0, false
	}
	return b.Uint64(), true
}

func fieldErr(method, field string) error {
	return fmt.Errorf("%w: %s: unexpected type for %s", ErrDecode, method, field)
}
