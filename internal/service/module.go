package service

import (
	"go.uber.org/fx"
)

var (
	Module = fx.Provide(
		NewAuth,
		NewUsers,
		NewLibrary,
		NewProjects,
		NewCatalog,
	)
)
