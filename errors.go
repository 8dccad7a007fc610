package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Intent failures, scoped to a single client and a single room. None of
// these terminate the dispatcher.
var (
	errEmptyName     = errors.New("name must not be empty")
	errRoomNotFound  = errors.New("room not found")
	errRoomFull      = errors.New("room is full")
	errRoomStarted   = errors.New("room has already started")
	errWrongPassword = errors.New("wrong password")
	errAlreadyInRoom = errors.New("already in a room")
	errNotInRoom     = errors.New("not in a room")
	errNotStarted    = errors.New("game has not started")
	errGameOver      = errors.New("game is over")
	errOutOfTurn     = errors.New("not your turn")
	errNotRolled     = errors.New("roll the dice first")
	errIllegalMove   = errors.New("illegal move")
	errPawnNotFound  = errors.New("pawn not found")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
