// Package domain 定义问答平台的链下领域模型
//
// 这些类型是适配层对外暴露的纯数据对象：
//   - 由 core/abi 从合约返回值解码得到
//   - 由 core/query 缓存并交付给上层（CLI / UI）
//   - 不包含任何链上业务规则（规则在合约内执行）
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Question 链上问题记录
//
// 生命周期：askQuestion 创建；upvote/approve 修改计数与批准状态；
// 永不删除，只会被停用（IsActive=false）。
type Question struct {
	ID                uint64   `json:"id"`                  // 合约分配的正整数ID
	Asker             string   `json:"asker"`               // 提问者地址(0x十六进制)
	Title             string   `json:"title"`               // 标题
	Description       string   `json:"description"`         // 描述
	Bounty            string   `json:"bounty"`              // 悬赏金额(基础单位，十进制字符串)
	IsActive          bool     `json:"is_active"`           // 是否有效
	HasApprovedAnswer bool     `json:"has_approved_answer"` // 是否已有被批准的答案
	ApprovedAnswerID  uint64   `json:"approved_answer_id"`  // 被批准答案ID(0表示无)
	Upvotes           uint64   `json:"upvotes"`             // 点赞数
	Tags              []string `json:"tags,omitempty"`      // 标签(0-5个)
	Timestamp         uint64   `json:"timestamp"`           // 创建时间(Unix秒，不可变)
}

// CreatedAt 返回问题创建时间
func (q *Question) CreatedAt() time.Time {
	return time.Unix(int64(q.Timestamp), 0)
}

// Answer 链上答案记录
//
// 不变量：QuestionID 必须指向已存在的问题；每个问题至多一个 IsApproved=true。
type Answer struct {
	ID         uint64 `json:"id"`          // 合约全局计数器分配的ID
	QuestionID uint64 `json:"question_id"` // 所属问题ID
	Answerer   string `json:"answerer"`    // 回答者地址
	Content    string `json:"content"`     // 答案内容
	Upvotes    uint64 `json:"upvotes"`     // 点赞数
	IsApproved bool   `json:"is_approved"` // 是否被批准
	Timestamp  uint64 `json:"timestamp"`   // 创建时间(Unix秒，不可变)
}

// CreatedAt 返回答案创建时间
func (a *Answer) CreatedAt() time.Time {
	return time.Unix(int64(a.Timestamp), 0)
}

// PlatformStats 平台聚合统计
//
// 派生数据，不单独存储；必须恒等于底层 Question/Answer/注册用户记录的计数。
type PlatformStats struct {
	TotalQuestions uint64 `json:"total_questions"`
	TotalAnswers   uint64 `json:"total_answers"`
	TotalUsers     uint64 `json:"total_users"`
}

// User 链上用户档案
type User struct {
	Address        string `json:"address"`         // 用户地址
	QuestionsAsked uint64 `json:"questions_asked"` // 提问数
	AnswersGiven   uint64 `json:"answers_given"`   // 回答数
	Reputation     uint64 `json:"reputation"`      // 声望值
	Registered     bool   `json:"registered"`      // 是否已注册
}

// TransferLog 代币转账日志
//
// 作为合约活动的代理信号：当合约没有结构化事件时，
// 扫描器通过发往合约地址的转账日志重建领域事件。
type TransferLog struct {
	BlockHeight uint64 `json:"block_height"` // 区块高度
	TxHash      string `json:"tx_hash"`      // 所属交易哈希
	From        string `json:"from"`         // 付款方地址
	To          string `json:"to"`           // 收款方地址(合约)
	Value       string `json:"value"`        // 转账金额(基础单位，十进制字符串)
	CallData    string `json:"call_data"`    // 发起交易的调用数据(0x十六进制，可为空)
}

// ActionKind 领域动作类型
type ActionKind string

const (
	ActionAskQuestion  ActionKind = "ask_question"  // 提问
	ActionSubmitAnswer ActionKind = "submit_answer" // 提交答案
	ActionUpvote       ActionKind = "upvote"        // 点赞
	ActionApprove      ActionKind = "approve"       // 批准答案
	ActionUnknown      ActionKind = "unknown"       // 无法分类
)

// NormalizeAddress 规范化地址为EIP-55校验和格式
// 输入必须是合法的0x前缀20字节十六进制，否则返回 false
func NormalizeAddress(addr string) (string, bool) {
	if !common.IsHexAddress(addr) {
		return "", false
	}
	return common.HexToAddress(addr).Hex(), true
}
