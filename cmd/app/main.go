package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/acervo-digital/biblioteca-back/internal/config"
	"github.com/acervo-digital/biblioteca-back/internal/db"
	"github.com/acervo-digital/biblioteca-back/internal/graphql"
	"github.com/acervo-digital/biblioteca-back/internal/service"
	"github.com/acervo-digital/biblioteca-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			db.NewGormClient,
			func() (*zap.SugaredLogger, error) {
				l, err := zap.NewDevelopment()
				if err != nil {
					return nil, err
				}

				s := l.Sugar()
				return s, nil
			},
		),
		service.Module,
		graphql.Module,
		fx.Invoke(transport.NewHTTPServer),
	)

	app.Run()
}
