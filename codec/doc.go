// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package codec turns an accumulating per-connection byte buffer into complete
// application messages.
//
// A Buffer keeps a position/limit/mark cursor over a fixed slab. Between reads the
// buffer is in fill mode: bytes already received but not yet consumed sit at the
// front, and the next read appends after them. DecodeStream flips the buffer,
// extracts as many messages as the Decoder recognises and then either clears or
// compacts the buffer so that a message split across reads is reassembled on the
// next one.
package codec
