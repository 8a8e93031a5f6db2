//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/xcloud/console-client/internal/api"
	"github.com/xcloud/console-client/internal/app"
	"github.com/xcloud/console-client/internal/http/client"
	"github.com/xcloud/console-client/internal/http/handler"
	"github.com/xcloud/console-client/internal/navigation"
	"github.com/xcloud/console-client/internal/service"
)

var observabilitySet = wire.NewSet(
	provideConfig,
	provideLogProvider,
	provideLogger,
	provideRuntime,
)

var cliSet = wire.NewSet(
	observabilitySet,
	provideKeyValueStore,
	provideFixtures,
	provideClient,
	api.NewHTTPAuthAPI,
	provideAuthClient,
	provideSessionStore,
	navigation.NewCLINavigator,
	wire.Bind(new(navigation.Navigator), new(*navigation.CLINavigator)),
	wire.Bind(new(client.TokenProvider), new(*service.SessionStore)),
	api.NewAuthed,
	api.NewHTTPUserAPI,
	api.NewHTTPRawAPI,
	app.NewCLI,
)

var mockAPISet = wire.NewSet(
	observabilitySet,
	provideAccountRepository,
	provideJWTManager,
	provideTokenDenylist,
	provideTokenService,
	service.NewAuthService,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	provideRouter,
	provideHTTPServer,
	app.NewMockAPI,
)

func InitializeCLI(ctx context.Context) (*app.CLI, func(), error) {
	wire.Build(cliSet)
	return nil, nil, nil
}

func InitializeMockAPI(ctx context.Context) (*app.MockAPI, func(), error) {
	wire.Build(mockAPISet)
	return nil, nil, nil
}
