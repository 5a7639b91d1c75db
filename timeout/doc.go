// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout sets the deadline of each individual attempt made by
// the HTTP transport. The plan context bounds the whole logical
// request, waits included; a timeout Policy bounds each attempt within
// it, and may lengthen the timeout after an attempt has timed out.
package timeout
