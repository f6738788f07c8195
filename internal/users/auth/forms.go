// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"regexp"
	"unicode/utf8"

	"github.com/taibuivan/legacyvault/internal/platform/validate"
)

// # Validation Rules

const (
	maxEmailLength    = 255
	minUsernameLength = 3
	maxUsernameLength = 100
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[@$!%*?&]`)
)

const (
	msgUsernameCharset = "Username can only contain letters, numbers, underscores, and hyphens"
	msgPasswordClasses = "Password must contain at least one lowercase letter, one uppercase letter, one number, and one special character"
	msgPasswordsDiffer = "Passwords do not match"
)

// # Forms

// LoginForm is raw login input.
type LoginForm struct {
	Email      string
	Password   string
	RememberMe bool
}

// Validate normalises the form and returns the service input.
func (form LoginForm) Validate() (LoginInput, error) {
	email := validate.NormalizeEmail(form.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email)
	if email != "" {
		validator.Email(FieldEmail, email)
	}
	validator.Required(FieldPassword, form.Password)

	if err := validator.Err(); err != nil {
		return LoginInput{}, err
	}
	return LoginInput{Email: email, Password: form.Password, RememberMe: form.RememberMe}, nil
}

// RegisterForm is raw registration input.
type RegisterForm struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// Validate checks every registration rule and reports all failures at once.
func (form RegisterForm) Validate() (RegisterInput, error) {
	email := validate.NormalizeEmail(form.Email)
	username := validate.NormalizeIdentifier(form.Username)

	validator := &validate.Validator{}

	validator.Required(FieldEmail, email)
	if email != "" {
		validator.Email(FieldEmail, email).
			MaxLen(FieldEmail, email, maxEmailLength)
	}

	validator.MinLen(FieldUsername, username, minUsernameLength).
		MaxLen(FieldUsername, username, maxUsernameLength)
	if username != "" {
		validator.Pattern(FieldUsername, username, usernamePattern, msgUsernameCharset)
	}

	validatePassword(validator, FieldPassword, form.Password)
	validator.Matches(FieldConfirmPassword, form.ConfirmPassword, form.Password, msgPasswordsDiffer)

	if err := validator.Err(); err != nil {
		return RegisterInput{}, err
	}
	return RegisterInput{Email: email, Username: username, Password: form.Password}, nil
}

// ForgotPasswordForm is raw password-recovery input.
type ForgotPasswordForm struct {
	Email string
}

// Validate returns the normalised email.
func (form ForgotPasswordForm) Validate() (string, error) {
	email := validate.NormalizeEmail(form.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email)
	if email != "" {
		validator.Email(FieldEmail, email)
	}

	if err := validator.Err(); err != nil {
		return "", err
	}
	return email, nil
}

// ResetPasswordForm is raw password-reset input.
type ResetPasswordForm struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// Validate applies the registration password rules to the new password.
func (form ResetPasswordForm) Validate() error {
	validator := &validate.Validator{}
	validator.Required(FieldToken, form.Token)
	validatePassword(validator, FieldPassword, form.Password)
	validator.Matches(FieldConfirmPassword, form.ConfirmPassword, form.Password, msgPasswordsDiffer)
	return validator.Err()
}

func validatePassword(validator *validate.Validator, field, password string) {
	validator.MinLen(field, password, minPasswordLength).
		MaxLen(field, password, maxPasswordLength)

	complete := lowerPattern.MatchString(password) &&
		upperPattern.MatchString(password) &&
		digitPattern.MatchString(password) &&
		specialPattern.MatchString(password)
	validator.Custom(field, !complete, msgPasswordClasses)
}

// # Password Strength

// Strength is a coarse rating shown next to a new password.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// PasswordStrength scores password on length and character classes (0..7).
func PasswordStrength(password string) (Strength, int) {
	length := utf8.RuneCountInString(password)

	score := 0
	for _, passed := range []bool{
		length >= 8,
		length >= 12,
		lowerPattern.MatchString(password),
		upperPattern.MatchString(password),
		digitPattern.MatchString(password),
		specialPattern.MatchString(password),
		length >= 16,
	} {
		if passed {
			score++
		}
	}

	switch {
	case score <= 3:
		return StrengthWeak, score
	case score <= 5:
		return StrengthMedium, score
	default:
		return StrengthStrong, score
	}
}
