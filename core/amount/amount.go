// Package amount 提供VQR代币金额的定点编解码
//
// VQR金额系统：
//   - 1 VQR = 10^18 基础单位（链上定点表示）
//   - 使用 *big.Int 精确整数换算，严禁浮点乘法
//     （浮点换算在接近 2^53 基础单位时会丢失精度）
//   - 十进制字符串与基础单位字符串双向无损转换
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// DecimalPlaces VQR的小数位数
	DecimalPlaces = 18
)

var (
	// ErrInvalidAmount 无效的金额（非法的非负十进制数字）
	ErrInvalidAmount = errors.New("invalid amount")

	// unitsPerVQR 预计算的 10^18
	unitsPerVQR = new(big.Int).Exp(big.NewInt(10), big.NewInt(DecimalPlaces), nil)
)

// Amount 表示VQR金额（内部持有最小单位）
type Amount struct {
	value *big.Int
}

// Parse 从十进制字符串解析Amount
//
// 接受格式："1"、"1.5"、"0.000000000000000001"、".5"、"1."
// 拒绝：空串、负数、多个小数点、非数字字符、超过18位小数
func Parse(s string) (*Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("%w: signed numeral %q", ErrInvalidAmount, s)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, fmt.Errorf("%w: multiple decimal points in %q", ErrInvalidAmount, s)
		}
	}
	if intPart == "" && fracPart == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(fracPart) > DecimalPlaces {
		return nil, fmt.Errorf("%w: more than %d fractional digits in %q", ErrInvalidAmount, DecimalPlaces, s)
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	// 精确整数换算：value = intPart*10^18 + fracPart*10^(18-len(fracPart))
	value := new(big.Int)
	if intPart != "" {
		if _, ok := value.SetString(intPart, 10); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		value.Mul(value, unitsPerVQR)
	}
	if fracPart != "" {
		frac := new(big.Int)
		if _, ok := frac.SetString(fracPart, 10); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(DecimalPlaces-len(fracPart))), nil)
		value.Add(value, frac.Mul(frac, scale))
	}

	return &Amount{value: value}, nil
}

// FromBaseUnits 从基础单位字符串创建Amount
func FromBaseUnits(s string) (*Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || !isDigits(s) {
		return nil, fmt.Errorf("%w: base units %q", ErrInvalidAmount, s)
	}
	value, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: base units %q", ErrInvalidAmount, s)
	}
	return &Amount{value: value}, nil
}

// FromBigInt 从big.Int创建Amount（拷贝，拒绝负数）
func FromBigInt(v *big.Int) (*Amount, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrInvalidAmount)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value", ErrInvalidAmount)
	}
	return &Amount{value: new(big.Int).Set(v)}, nil
}

// Zero 返回零金额
func Zero() *Amount {
	return &Amount{value: big.NewInt(0)}
}

// BaseUnits 返回基础单位字符串
func (a *Amount) BaseUnits() string {
	if a == nil {
		return "0"
	}
	return a.value.String()
}

// BigInt 返回big.Int副本
func (a *Amount) BigInt() *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.value)
}

// Decimal 返回规范化的十进制字符串
//
// 规范化规则：去掉小数部分末尾的0；无小数部分时不带小数点。
//
//	1500000000000000000 → "1.5"
//	1000000000000000000 → "1"
//	1 → "0.000000000000000001"
func (a *Amount) Decimal() string {
	if a == nil || a.value.Sign() == 0 {
		return "0"
	}

	quo, rem := new(big.Int).QuoRem(a.value, unitsPerVQR, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}

	frac := rem.String()
	// 左侧补零到18位
	if pad := DecimalPlaces - len(frac); pad > 0 {
		frac = strings.Repeat("0", pad) + frac
	}
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

// Add 加法：a + b
func (a *Amount) Add(b *Amount) *Amount {
	if a == nil || b == nil {
		return Zero()
	}
	return &Amount{value: new(big.Int).Add(a.value, b.value)}
}

// Cmp 比较两个金额：-1/0/1
func (a *Amount) Cmp(b *Amount) int {
	return a.BigInt().Cmp(b.BigInt())
}

// IsZero 判断金额是否为零
func (a *Amount) IsZero() bool {
	return a == nil || a.value.Sign() == 0
}

// ToBaseUnits 十进制字符串 → 基础单位字符串
//
// 这是适配层对外的主入口：UI输入"0.1"，链上需要"100000000000000000"。
func ToBaseUnits(decimal string) (string, error) {
	a, err := Parse(decimal)
	if err != nil {
		return "", err
	}
	return a.BaseUnits(), nil
}

// ToDecimal 基础单位字符串 → 规范化十进制字符串
func ToDecimal(baseUnits string) (string, error) {
	a, err := FromBaseUnits(baseUnits)
	if err != nil {
		return "", err
	}
	return a.Decimal(), nil
}

// isDigits 检查字符串是否全为ASCII数字（空串返回true）
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
