package main

// General API documentation for swaggo. Run `swag init -g cmd/lmrelay/docs.go` to regenerate docs/.
//
// @title           lmrelay API
// @version         1.0
// @description     Chat relay between a browser client and an LM Studio compatible backend.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
