package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/nodal-works/ferret/backend/internal/util"
	"github.com/nodal-works/ferret/backend/pkg/ai"
	oai "github.com/nodal-works/ferret/backend/pkg/ai/ollama"
	gai "github.com/nodal-works/ferret/backend/pkg/ai/openai"
	"github.com/nodal-works/ferret/backend/pkg/correlation"
	"github.com/nodal-works/ferret/backend/pkg/loader/web"
	"github.com/nodal-works/ferret/backend/pkg/logger"
	"github.com/nodal-works/ferret/backend/pkg/records"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

type App struct {
	DBConn         *pgxpool.Pool
	Queue          *amqp091.Channel
	Key            *keyfunc.Keyfunc
	S3             *s3.Client
	AiClient       ai.Client
	Records        *records.Client
	Cache          correlation.ExtractionCache
	Web            *web.Loader
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// AppDeps are the long-lived collaborators shared by every request.
type AppDeps struct {
	DBConn         *pgxpool.Pool
	Queue          *amqp091.Channel
	Key            *keyfunc.Keyfunc
	S3             *s3.Client
	Records        *records.Client
	Cache          correlation.ExtractionCache
	Web            *web.Loader
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

func AppContextMiddleware(deps AppDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			adapter := util.GetEnv("AI_ADAPTER")
			var aiClient ai.Client

			switch adapter {
			case "ollama":
				client, err := oai.NewClient(oai.NewClientParams{
					ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

					BaseURL: util.GetEnv("AI_CHAT_URL"),
					ApiKey:  util.GetEnv("AI_CHAT_KEY"),

					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
				if err != nil {
					logger.Fatal("Failed to create Ollama client", "err", err)
				}
				aiClient = client
			case "openai":
				aiClient = gai.NewClient(gai.NewClientParams{
					ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

					EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
					EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
					ChatURL:      util.GetEnv("AI_CHAT_URL"),
					ChatKey:      util.GetEnv("AI_CHAT_KEY"),

					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
			default:
				// no adapter configured: insights fall back to heuristics
				aiClient = nil
			}

			app := &App{
				DBConn:         deps.DBConn,
				Queue:          deps.Queue,
				Key:            deps.Key,
				S3:             deps.S3,
				AiClient:       aiClient,
				Records:        deps.Records,
				Cache:          deps.Cache,
				Web:            deps.Web,
				MasterAPIKey:   deps.MasterAPIKey,
				MasterUserID:   deps.MasterUserID,
				MasterUserRole: deps.MasterUserRole,
			}
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
