// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient sorts the errors raised by an HTTP request attempt
// into transience categories. The retry package builds its error kinds
// on top of these categories, and they are equally useful for bucketing
// error logs and metrics.
//
// Package transient depends only on the standard library packages
// "errors" and "syscall", so it is safe to import on its own.
package transient
