package registry

import (
	"context"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/model"
)

// RegisterDeveloper creates a developer account
func (s *Service) RegisterDeveloper(ctx context.Context, user, pw string) error {
	if user == "" {
		return &model.FieldError{Field: "user"}
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Developers[user]; ok {
		return model.ErrUserExists
	}
	s.doc.Developers[user] = &model.DeveloperAccount{
		Username:     user,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.persist(ctx); err != nil {
		delete(s.doc.Developers, user)
		return err
	}

	s.logger.Info("developer registered", zap.String("user", user))
	return nil
}

// LoginDeveloper checks credentials and issues a new session token, replacing
// any token previously issued for the same account. replaced reports whether
// an older session was invalidated.
func (s *Service) LoginDeveloper(user, pw string) (sess model.DeveloperSession, replaced bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.doc.Developers[user]
	if !ok {
		return model.DeveloperSession{}, false, model.ErrNoSuchUser
	}
	if !s.hasher.Verify(acct.PasswordHash, pw) {
		return model.DeveloperSession{}, false, model.ErrBadCredentials
	}

	_, replaced = s.sessions[user]
	token := s.random.Token()
	s.sessions[user] = token

	s.logger.Info("developer logged in", zap.String("user", user), zap.Bool("session_replaced", replaced))
	return model.DeveloperSession{Username: user, Token: token}, replaced, nil
}

// ValidateSession returns nil only if sess is the newest login of its account
func (s *Service) ValidateSession(sess model.DeveloperSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateSessionLocked(sess)
}

func (s *Service) validateSessionLocked(sess model.DeveloperSession) error {
	if sess.Username == "" || sess.Token == "" {
		return model.ErrAuthRequired
	}
	if s.sessions[sess.Username] != sess.Token {
		return model.ErrSessionExpired
	}
	return nil
}

// EndSession forgets sess if it is still the current session of its account
func (s *Service) EndSession(sess model.DeveloperSession) {
	if sess.Username == "" || sess.Token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sess.Username] == sess.Token {
		delete(s.sessions, sess.Username)
	}
}
