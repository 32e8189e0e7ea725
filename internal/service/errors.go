package service

import "errors"

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrNoEmail          = errors.New("no email set")
	ErrUserNotFound     = errors.New("user not found")
)
