package main

// General API documentation for swaggo. Regenerate ./docs with
// `swag init -g cmd/chatd/docs.go -d ./,./internal/httpapi -o docs`.
//
// @title           chatd API
// @version         1.0
// @description     HTTP API for downloading local chat models and chatting with them.
//
// @contact.name   chatd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
