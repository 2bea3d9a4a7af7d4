package stub

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mistral-probe/logger"
	"mistral-probe/pkg"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// Server mimics the hosted chat-completion API on the wire, close enough
// for the suite and the load driver to run against it offline.
type Server struct {
	apiKey string
	limit  *limiter
}

// New builds a stub. An empty apiKey accepts any bearer token, rpm <= 0
// disables rate limiting.
func New(apiKey string, rpm int) *Server {
	server := &Server{apiKey: apiKey}
	if rpm > 0 {
		server.limit = newLimiter(rpm)
	}
	return server
}

func (server *Server) Handler() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	route := gin.New()
	route.Use(gin.Recovery())
	route.GET("/", index)
	route.GET("/v1/models", server.models)
	route.POST("/v1/chat/completions", server.completions)
	return route
}

func (server *Server) Run(port int) {
	addr := ":" + strconv.Itoa(port)
	logger.Infof("stub start by http://127.0.0.1%s/v1", addr)
	if err := server.Handler().Run(addr); err != nil {
		logger.Fatal(err)
	}
}

func index(ctx *gin.Context) {
	_, _ = ctx.Writer.WriteString("<div style='color:green'>success ~</div>")
}

// auth reports whether the request carries an acceptable bearer token.
// A false return means the 401 has already been written.
func (server *Server) auth(ctx *gin.Context) bool {
	token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if token == "" {
		Error(ctx, http.StatusUnauthorized, "No API key found in request")
		return false
	}
	if server.apiKey != "" && token != server.apiKey {
		Error(ctx, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

func (server *Server) rate(ctx *gin.Context) bool {
	if server.limit == nil {
		return true
	}
	if !server.limit.permit(ctx.ClientIP()) {
		Error(ctx, http.StatusTooManyRequests, "Requests rate limit exceeded")
		return false
	}
	return true
}

func (server *Server) completions(ctx *gin.Context) {
	if !server.auth(ctx) {
		return
	}
	if !server.rate(ctx) {
		return
	}

	data, err := io.ReadAll(ctx.Request.Body)
	if err != nil || !gjson.ValidBytes(data) {
		Error(ctx, http.StatusBadRequest, "Invalid request: invalid json body")
		return
	}

	var completion pkg.ChatCompletion
	if err = json.Unmarshal(data, &completion); err != nil {
		logger.Error(err)
		Error(ctx, http.StatusBadRequest, "Invalid request: invalid json body")
		return
	}

	logger.Infof("curr model: %s", completion.Model)
	if !validate(ctx, data, completion) {
		return
	}

	if name, ok := useTool(completion); ok {
		args := toolArguments(lastUserMessage(completion.Messages))
		if completion.Stream {
			SSEToolCallResponse(ctx, completion, name, args, time.Now().Unix())
			return
		}
		ToolCallResponse(ctx, completion, name, args)
		return
	}

	content := answer(completion)
	content, _ = applyStop(content, completion.StopSequences)

	finishReason := stop
	if completion.MaxTokens > 0 {
		var trimmed bool
		content, trimmed = pkg.TrimTokens(content, completion.MaxTokens)
		if trimmed {
			finishReason = length
		}
	}

	if completion.Stream {
		SSEResponse(ctx, completion, content, finishReason, time.Now().Unix())
		return
	}
	Response(ctx, completion, content, finishReason)
}

func (server *Server) models(ctx *gin.Context) {
	if !server.auth(ctx) {
		return
	}

	models := make([]pkg.Model, 0)
	for _, id := range pkg.Models() {
		models = append(models, pkg.Model{
			Id:      id,
			Object:  "model",
			Created: 1686935002,
			By:      "mistralai",
		})
	}
	ctx.JSON(http.StatusOK, pkg.ModelList{
		Object: "list",
		Data:   models,
	})
}
