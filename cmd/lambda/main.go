package main

import (
	"context"
	"log"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalogo-backend/infrastructure/di"
	"catalogo-backend/interfaces/http/rest"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
)

// init runs during cold start
func init() {
	ctx := context.Background()

	var err error
	container, err = di.NewContainer(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	handler := rest.NewRouter(container).Setup()
	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)
}

// Handler proxies API Gateway events into the chi router. The gateway's
// JWT authorizer has already run for admin routes, so its claims are
// copied into headers for the auth middleware to trust.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	if authorizer := req.RequestContext.Authorizer; authorizer != nil && authorizer.JWT != nil {
		claims := authorizer.JWT.Claims
		req.Headers["X-API-Gateway-Authorized"] = "true"
		if sub, ok := claims["sub"]; ok {
			req.Headers["X-User-ID"] = sub
		}
		if email, ok := claims["email"]; ok {
			req.Headers["X-User-Email"] = email
		}
		if groups, ok := claims["cognito:groups"]; ok {
			req.Headers["X-User-Roles"] = strings.Trim(groups, "[]")
		}
	}

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	if err != nil {
		container.Logger.Error("proxy failure",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Error(err),
		)
	}

	return resp, err
}

func main() {
	lambda.Start(Handler)
}
