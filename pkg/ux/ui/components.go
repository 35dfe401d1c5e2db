package ui

import (
	"github.com/pterm/pterm"
)

// Spinner 加载动画句柄
type Spinner interface {
	// UpdateText 更新动画旁的文字
	UpdateText(message string)

	// Success 以成功状态结束
	Success(message string)

	// Fail 以失败状态结束
	Fail(message string)

	// Stop 静默结束
	Stop()
}

// StartSpinner 启动加载动画
// 终端不可用时退化为一次性打印
func StartSpinner(message string) Spinner {
	printer, err := pterm.DefaultSpinner.Start(message)
	if err != nil {
		pterm.Info.Println(message)
		return &noopSpinner{}
	}
	return &ptermSpinner{printer: printer}
}

type ptermSpinner struct {
	printer *pterm.SpinnerPrinter
}

func (s *ptermSpinner) UpdateText(message string) { s.printer.UpdateText(message) }
func (s *ptermSpinner) Success(message string)    { s.printer.Success(message) }
func (s *ptermSpinner) Fail(message string)       { s.printer.Fail(message) }
func (s *ptermSpinner) Stop()                     { _ = s.printer.Stop() }

type noopSpinner struct{}

func (s *noopSpinner) UpdateText(string) {}
func (s *noopSpinner) Success(string)    {}
func (s *noopSpinner) Fail(string)       {}
func (s *noopSpinner) Stop()             {}

// Confirm 显示确认提示，返回用户选择
func Confirm(message string, defaultValue bool) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		WithDefaultValue(defaultValue).
		Show(message)
}
