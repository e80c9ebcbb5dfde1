// Package autoload configures the global logger from the environment as an
// import side effect. Binaries blank-import it before any other wiring runs.
package autoload

import (
	configx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/pkg/config"
	logx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
