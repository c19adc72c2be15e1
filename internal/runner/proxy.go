package runner

import (
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

// ResultProxy sits between the tests and the result of a run. Every
// outcome is shown to the plugins, which may rewrite errors or swallow
// them, before it reaches the wrapped result.
type ResultProxy struct {
	result  suite.Result
	plugins *plugin.Manager
}

// NewResultProxy creates a new ResultProxy
func NewResultProxy(result suite.Result, plugins *plugin.Manager) *ResultProxy {
	return &ResultProxy{result: result, plugins: plugins}
}

// Result returns the wrapped result.
func (p *ResultProxy) Result() suite.Result { return p.result }

func (p *ResultProxy) StartTest(t suite.Test) {
	p.plugins.BeforeTest(t)
	p.plugins.StartTest(t)
	p.result.StartTest(t)
}

func (p *ResultProxy) StopTest(t suite.Test) {
	p.result.StopTest(t)
	p.plugins.StopTest(t)
	p.plugins.AfterTest(t)
}

func (p *ResultProxy) AddSuccess(t suite.Test) {
	p.result.AddSuccess(t)
	p.plugins.AddSuccess(t)
}

func (p *ResultProxy) AddFailure(t suite.Test, err error) {
	err = p.plugins.FormatFailure(t, err)
	if p.plugins.HandleFailure(t, err) {
		return
	}
	p.result.AddFailure(t, err)
	p.plugins.AddFailure(t, err)
}

func (p *ResultProxy) AddError(t suite.Test, err error) {
	err = p.plugins.FormatError(t, err)
	if p.plugins.HandleError(t, err) {
		return
	}
	p.result.AddError(t, err)
	p.plugins.AddError(t, err)
}

func (p *ResultProxy) AddSkip(t suite.Test, reason string) {
	p.result.AddSkip(t, reason)
	p.plugins.AddSkip(t, reason)
}

func (p *ResultProxy) ShouldStop() bool { return p.result.ShouldStop() }
