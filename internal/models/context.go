/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package models

import "context"

type callerContextKey struct{}

// WithCaller attaches the authenticated caller identity to a context. Transports
// call this only after they have verified the caller controls the identity.
func WithCaller(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, callerContextKey{}, identity)
}

// CallerFromContext returns the authenticated caller identity, or "" if the
// request is anonymous.
func CallerFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(callerContextKey{}).(string)
	return identity
}
