package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jun/drivelookup/internal/app"
)

func main() {
	application := app.NewApp(context.Background())
	defer application.Close()
	lambda.Start(application.HandleRequest)
}
