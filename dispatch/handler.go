/*
 * Copyright (c) 2026, AngelWhisper Authors
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions are met:
 *
 *  * Redistributions of source code must retain the above copyright notice,
 *    this list of conditions and the following disclaimer.
 *
 *  * Redistributions in binary form must reproduce the above copyright notice,
 *    this list of conditions and the following disclaimer in the documentation
 *    and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
 * AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
 * IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
 * ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
 * LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
 * CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
 * SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
 * INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
 * CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
 * ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

package dispatch

import "gitlab.com/yawning/angelwhisper.git/registry"

// Services is an opaque heterogeneous context map shared by all handlers,
// the way config/db-handle/logger bundles are threaded through request
// handlers elsewhere in this corpus.
type Services map[string]any

// SessionHandle is the shareable handle to a server session a Handler
// receives. It is the same type as *registry.Entry: a Handler may
// reacquire the lock explicitly (RLock/Lock), but the dispatcher never
// hands it over already locked.
type SessionHandle = *registry.Entry

// Handler is pluggable business logic invoked once per decrypted Message
// payload. It runs without holding the session lock.
type Handler interface {
	Handle(services Services, sess SessionHandle, message []byte) ([]byte, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(services Services, sess SessionHandle, message []byte) ([]byte, error)

// Handle calls f.
func (f HandlerFunc) Handle(services Services, sess SessionHandle, message []byte) ([]byte, error) {
	return f(services, sess, message)
}
