// Package output 提供CLI命令的输出格式化
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/vequora/client-sdk-go/core/amount"
	"github.com/vequora/client-sdk-go/core/domain"
)

// Format 输出格式
type Format string

const (
	// FormatJSON JSON格式（默认）
	FormatJSON Format = "json"
	// FormatPretty 美化JSON格式
	FormatPretty Format = "pretty"
	// FormatTable 表格格式
	FormatTable Format = "table"
)

// Formatter 输出格式化器
//
// 数据走 writer（默认stdout），状态消息走 logWriter（默认stderr），
// 管道里取JSON时不会混入装饰输出。
type Formatter struct {
	format    Format
	writer    io.Writer
	logWriter io.Writer
	silent    bool
}

// NewFormatter 创建格式化器
func NewFormatter(format Format, writer io.Writer) *Formatter {
	if writer == nil {
		writer = os.Stdout
	}

	return &Formatter{
		format:    format,
		writer:    writer,
		logWriter: os.Stderr,
	}
}

// SetLogWriter 设置状态消息输出目标（默认 stderr）
func (f *Formatter) SetLogWriter(writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	f.logWriter = writer
}

// SetSilent 设置静默模式
func (f *Formatter) SetSilent(silent bool) {
	f.silent = silent
}

// Print 按当前格式打印任意数据
// 表格格式只对领域对象有专门渲染，其余降级为美化JSON
func (f *Formatter) Print(data interface{}) error {
	if f.silent {
		return nil
	}

	if f.format == FormatTable {
		return f.printTable(data)
	}
	return f.printJSON(data, f.format == FormatPretty)
}

func (f *Formatter) printJSON(data interface{}, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintln(f.writer, string(output)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// printTable 领域对象的表格渲染
func (f *Formatter) printTable(data interface{}) error {
	switch v := data.(type) {
	case *domain.Question:
		return f.renderQuestions([]*domain.Question{v})
	case []*domain.Question:
		return f.renderQuestions(v)
	case *domain.Answer:
		return f.renderAnswers([]*domain.Answer{v})
	case []*domain.Answer:
		return f.renderAnswers(v)
	case *domain.PlatformStats:
		return f.renderStats(v)
	case *domain.User:
		return f.renderUser(v)
	case []*domain.TransferLog:
		return f.renderLogs(v)
	default:
		return f.printJSON(data, true)
	}
}

func (f *Formatter) renderQuestions(questions []*domain.Question) error {
	rows := pterm.TableData{
		{"ID", "Title", "Bounty (VQR)", "Approved", "Upvotes", "Status", "Asked"},
	}
	for _, q := range questions {
		status := "open"
		if !q.IsActive {
			status = "closed"
		} else if q.HasApprovedAnswer {
			status = "solved"
		}
		rows = append(rows, []string{
			strconv.FormatUint(q.ID, 10),
			truncate(q.Title, 48),
			formatVQR(q.Bounty),
			approvedMark(q),
			strconv.FormatUint(q.Upvotes, 10),
			status,
			q.CreatedAt().Format("2006-01-02 15:04"),
		})
	}
	return f.renderRows(rows)
}

func (f *Formatter) renderAnswers(answers []*domain.Answer) error {
	rows := pterm.TableData{
		{"ID", "Question", "Answerer", "Upvotes", "Approved", "Content"},
	}
	for _, a := range answers {
		approved := ""
		if a.IsApproved {
			approved = "✓"
		}
		rows = append(rows, []string{
			strconv.FormatUint(a.ID, 10),
			strconv.FormatUint(a.QuestionID, 10),
			shortAddr(a.Answerer),
			strconv.FormatUint(a.Upvotes, 10),
			approved,
			truncate(a.Content, 56),
		})
	}
	return f.renderRows(rows)
}

func (f *Formatter) renderStats(s *domain.PlatformStats) error {
	rows := pterm.TableData{
		{"Questions", "Answers", "Users"},
		{
			strconv.FormatUint(s.TotalQuestions, 10),
			strconv.FormatUint(s.TotalAnswers, 10),
			strconv.FormatUint(s.TotalUsers, 10),
		},
	}
	return f.renderRows(rows)
}

func (f *Formatter) renderUser(u *domain.User) error {
	rows := pterm.TableData{
		{"Address", "Questions", "Answers", "Reputation", "Registered"},
		{
			u.Address,
			strconv.FormatUint(u.QuestionsAsked, 10),
			strconv.FormatUint(u.AnswersGiven, 10),
			strconv.FormatUint(u.Reputation, 10),
			strconv.FormatBool(u.Registered),
		},
	}
	return f.renderRows(rows)
}

func (f *Formatter) renderLogs(logs []*domain.TransferLog) error {
	rows := pterm.TableData{
		{"Block", "Tx", "From", "Amount (VQR)"},
	}
	for _, log := range logs {
		rows = append(rows, []string{
			strconv.FormatUint(log.BlockHeight, 10),
			shortHash(log.TxHash),
			shortAddr(log.From),
			formatVQR(log.Value),
		})
	}
	return f.renderRows(rows)
}

func (f *Formatter) renderRows(rows pterm.TableData) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if _, err := fmt.Fprintln(f.writer, table); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// PrintSuccess 打印成功消息
func (f *Formatter) PrintSuccess(message string) {
	if f.silent {
		return
	}
	fmt.Fprintf(f.logWriter, "✅ %s\n", message)
}

// PrintError 打印错误消息
func (f *Formatter) PrintError(err error) {
	fmt.Fprintf(f.logWriter, "❌ Error: %v\n", err)
}

// PrintWarning 打印警告消息
func (f *Formatter) PrintWarning(message string) {
	if f.silent {
		return
	}
	fmt.Fprintf(f.logWriter, "⚠️  %s\n", message)
}

// PrintInfo 打印信息消息
func (f *Formatter) PrintInfo(message string) {
	if f.silent {
		return
	}
	fmt.Fprintf(f.logWriter, "ℹ️  %s\n", message)
}

// ===== 辅助函数 =====

// formatVQR 基础单位十进制字符串 → 人类可读VQR金额
// 转换失败原样返回，宁可难看不可错
func formatVQR(baseUnits string) string {
	decimal, err := amount.ToDecimal(baseUnits)
	if err != nil {
		return baseUnits
	}
	return decimal
}

// shortAddr 地址缩写: 0x1234…abcd
func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// shortHash 交易哈希缩写
func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:10] + "…"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-1]) + "…"
}

func approvedMark(q *domain.Question) string {
	if q.HasApprovedAnswer {
		return fmt.Sprintf("✓ #%d", q.ApprovedAnswerID)
	}
	return "-"
}

// ErrorOutput 错误输出结构
type ErrorOutput struct {
	Error struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// NewErrorOutput 创建错误输出
func NewErrorOutput(code string, message string, details interface{}) *ErrorOutput {
	output := &ErrorOutput{}
	output.Error.Code = code
	output.Error.Message = message
	output.Error.Details = details
	return output
}

// SuccessOutput 成功输出结构
type SuccessOutput struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	TxHash  string      `json:"tx_hash,omitempty"`
	At      time.Time   `json:"at,omitempty"`
}

// NewSuccessOutput 创建成功输出
func NewSuccessOutput(data interface{}, message string) *SuccessOutput {
	return &SuccessOutput{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// NewTxOutput 交易提交结果输出
func NewTxOutput(txHash string, message string) *SuccessOutput {
	return &SuccessOutput{
		Success: true,
		Message: message,
		TxHash:  txHash,
		At:      time.Now().UTC(),
	}
}
