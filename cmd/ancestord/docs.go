package main

// General API documentation for swaggo. Regenerate internal/docs with
// `swag init -g cmd/ancestord/docs.go -o internal/docs`.
//
// @title           ancestord API
// @version         1.0
// @description     Ancestor conversational inference over a local llama.cpp model.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
