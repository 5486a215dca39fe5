// Package logger wraps a zap sugared logger behind a global atomic level.
// Loggers travel in context.Context, so key-values added with WithKV and names added with WithName
// show up on every line logged further down the call chain.
package logger
