// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package auth provides the authentication and session core of HashLock.
//
// # Domain Types
//
// Domain types (User, Account, Session, PasswordResetToken) should be
// created using their constructors:
//   - NewUser - creates a STANDARD user, optionally without a password
//   - NewAccount - creates a provider identity link
//   - NewSession - creates a session expiring after SessionTTL
//   - NewPasswordResetToken - creates a reset token expiring after ResetTokenTTL
//
// Repository implementations receive pre-validated types from these
// constructors and must honour the atomicity documented on each port.
//
// # Services
//
//   - Service - registration, password login, promotion, user listing
//   - SessionStore - session issue, validation and revocation
//   - IdentityLinker - external identity resolution and linking
//   - ResetManager - forgot-password and reset-password flows
//   - Reaper - periodic removal of expired rows
//
// Errors returned to callers are *Failure values whose Kind is one of a
// fixed set; see AsFailure.
package auth
