package codec

// Serialize renders the command into its AT wire form, terminated by the
// given line terminator sequence.
func Serialize(cmd Command, terminator string) []byte {
	// Generous initial size; the encoder appends beyond it if needed.
	out := make([]byte, 0, 2+len(cmd.Name)+16*len(cmd.Args)+len(terminator))
	out = append(out, "AT"...)
	out = append(out, cmd.Name...)

	switch cmd.Kind {
	case KindRead:
		out = append(out, '?')
	case KindTest:
		out = append(out, "=?"...)
	case KindWrite:
		out = append(out, '=')
		for i, arg := range cmd.Args {
			if i > 0 {
				out = append(out, ',')
			}
			out = arg.encode(out)
		}
	}

	return append(out, terminator...)
}
