package abi

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// packReturn 用同一份ABI打包返回值，构造合约返回数据fixture
func packReturn(t *testing.T, method string, values ...interface{}) []byte {
	t.Helper()
	c, err := ethabi.JSON(strings.NewReader(contractABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	data, err := c.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	return data
}

// 往返性质：decode(encode(args)) == args
func TestEncodeDecodeCallRoundTrip(t *testing.T) {
	asker := common.HexToAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")

	tests := []struct {
		name string
		args []interface{}
	}{
		{"askQuestion", []interface{}{
			"How do clauses work?",
			"Looking for a practical explanation of multi-clause transactions.",
			[]string{"vechain", "transactions"},
			big.NewInt(100000000000000000), // 0.1 VQR
		}},
		{"submitAnswer", []interface{}{big.NewInt(42), "They are executed atomically."}},
		{"upvoteAnswer", []interface{}{big.NewInt(7)}},
		{"approveAnswer", []interface{}{big.NewInt(42), big.NewInt(7)}},
		{"getQuestion", []interface{}{big.NewInt(1)}},
		{"getUser", []interface{}{asker}},
		{"getPlatformStats", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.name, tt.args...)
			if err != nil {
				t.Fatalf("Encode(%s) error = %v", tt.name, err)
			}
			if len(data) < 4 {
				t.Fatalf("Encode(%s) produced %d bytes", tt.name, len(data))
			}

			name, args, err := DecodeCall(data)
			if err != nil {
				t.Fatalf("DecodeCall error = %v", err)
			}
			if name != tt.name {
				t.Fatalf("DecodeCall name = %s, want %s", name, tt.name)
			}
			if len(args) != len(tt.args) {
				t.Fatalf("DecodeCall returned %d args, want %d", len(args), len(tt.args))
			}
			for i, want := range tt.args {
				got := args[i]
				switch w := want.(type) {
				case *big.Int:
					if g, ok := got.(*big.Int); !ok || g.Cmp(w) != 0 {
						t.Errorf("arg %d = %v, want %v", i, got, w)
					}
				case []string:
					g, ok := got.([]string)
					if !ok || len(g) != len(w) {
						t.Fatalf("arg %d = %v, want %v", i, got, w)
					}
					for j := range w {
						if g[j] != w[j] {
							t.Errorf("arg %d[%d] = %v, want %v", i, j, g[j], w[j])
						}
					}
				default:
					if got != want {
						t.Errorf("arg %d = %v, want %v", i, got, want)
					}
				}
			}
		})
	}
}

func TestEncodeUnknownMethod(t *testing.T) {
	if _, err := Encode("registerUser"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Encode(registerUser) error = %v, want ErrUnknownMethod", err)
	}
}

func TestEncodeWrongArgs(t *testing.T) {
	// askQuestion 需要4个参数
	if _, err := Encode("askQuestion", "title only"); !errors.Is(err, ErrEncode) {
		t.Errorf("Encode error = %v, want ErrEncode", err)
	}
}

func TestSelector(t *testing.T) {
	seen := make(map[[4]byte]string)
	for _, name := range []string{
		"askQuestion", "submitAnswer", "upvoteAnswer", "downvoteAnswer",
		"approveAnswer", "getQuestion", "getAnswer", "getQuestionAnswers",
		"getPlatformStats", "getUser",
	} {
		sel, err := Selector(name)
		if err != nil {
			t.Fatalf("Selector(%s) error = %v", name, err)
		}
		if prev, dup := seen[sel]; dup {
			t.Errorf("selector collision between %s and %s", name, prev)
		}
		seen[sel] = name
	}
}

// 「无数据」与「数据损坏」必须可区分
func TestDecodeReturnNoDataVsMalformed(t *testing.T) {
	if _, err := DecodeReturn("getPlatformStats", nil); !errors.Is(err, ErrNoData) {
		t.Errorf("empty data error = %v, want ErrNoData", err)
	}

	// 非32字节对齐
	if _, err := DecodeReturn("getPlatformStats", make([]byte, 33)); !errors.Is(err, ErrDecode) {
		t.Errorf("unaligned data error = %v, want ErrDecode", err)
	}

	// 截断：3个uint256只给了1个槽
	if _, err := DecodeReturn("getPlatformStats", make([]byte, 32)); !errors.Is(err, ErrDecode) {
		t.Errorf("truncated data error = %v, want ErrDecode", err)
	}

	// 无输出的方法：空数据是合法的
	values, err := DecodeReturn("upvoteAnswer", nil)
	if err != nil || values != nil {
		t.Errorf("DecodeReturn(upvoteAnswer, nil) = %v, %v, want nil, nil", values, err)
	}
}

func TestDecodeCallMalformed(t *testing.T) {
	if _, _, err := DecodeCall([]byte{0x01, 0x02}); !errors.Is(err, ErrDecode) {
		t.Errorf("short call data error = %v, want ErrDecode", err)
	}
	if _, _, err := DecodeCall([]byte{0xde, 0xad, 0xbe, 0xef}); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("unknown selector error = %v, want ErrUnknownMethod", err)
	}
}

func TestDecodeQuestion(t *testing.T) {
	asker := common.HexToAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	data := packReturn(t, "getQuestion",
		big.NewInt(1),
		asker,
		"T",
		"D",
		big.NewInt(100000000000000000),
		true,
		true,
		big.NewInt(7),
		big.NewInt(3),
		[]string{"go", "vechain"},
		big.NewInt(1756500000),
	)

	q, err := DecodeQuestion(data)
	if err != nil {
		t.Fatalf("DecodeQuestion error = %v", err)
	}
	if q.ID != 1 || q.Asker != asker.Hex() || q.Title != "T" || q.Description != "D" {
		t.Errorf("DecodeQuestion basic fields = %+v", q)
	}
	if q.Bounty != "100000000000000000" {
		t.Errorf("Bounty = %v", q.Bounty)
	}
	if !q.HasApprovedAnswer || q.ApprovedAnswerID != 7 || q.Upvotes != 3 {
		t.Errorf("approval fields = %+v", q)
	}
	if len(q.Tags) != 2 || q.Tags[0] != "go" {
		t.Errorf("Tags = %v", q.Tags)
	}
	if q.Timestamp != 1756500000 {
		t.Errorf("Timestamp = %v", q.Timestamp)
	}
}

func TestDecodeAnswer(t *testing.T) {
	answerer := common.HexToAddress("0x9e7911de289c3c856ce7f421034f66b6cde49c39")
	data := packReturn(t, "getAnswer",
		big.NewInt(7), big.NewInt(1), answerer, "content", big.NewInt(5), false, big.NewInt(1756500100),
	)

	a, err := DecodeAnswer(data)
	if err != nil {
		t.Fatalf("DecodeAnswer error = %v", err)
	}
	if a.ID != 7 || a.QuestionID != 1 || a.Answerer != answerer.Hex() || a.Content != "content" {
		t.Errorf("DecodeAnswer = %+v", a)
	}
	if a.Upvotes != 5 || a.IsApproved || a.Timestamp != 1756500100 {
		t.Errorf("DecodeAnswer counters = %+v", a)
	}
}

func TestDecodePlatformStats(t *testing.T) {
	data := packReturn(t, "getPlatformStats", big.NewInt(10), big.NewInt(25), big.NewInt(8))

	s, err := DecodePlatformStats(data)
	if err != nil {
		t.Fatalf("DecodePlatformStats error = %v", err)
	}
	if s.TotalQuestions != 10 || s.TotalAnswers != 25 || s.TotalUsers != 8 {
		t.Errorf("DecodePlatformStats = %+v", s)
	}
}

func TestDecodeAnswerIDs(t *testing.T) {
	data := packReturn(t, "getQuestionAnswers", []*big.Int{big.NewInt(3), big.NewInt(9)})

	ids, err := DecodeAnswerIDs(data)
	if err != nil {
		t.Fatalf("DecodeAnswerIDs error = %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 9 {
		t.Errorf("DecodeAnswerIDs = %v", ids)
	}
}
