package hwcodec

// ContextsFor returns the contexts that decode format, in input order.
func ContextsFor(contexts []DecodeContext, format DataFormat) []DecodeContext {
	var out []DecodeContext
	for _, c := range contexts {
		if c.DataFormat == format {
			out = append(out, c)
		}
	}
	return out
}

// SelectContext picks a context for format. When luid is nonzero only
// contexts on that adapter qualify. Drivers are tried in prefer order; a nil
// prefer uses the default order (NV, AMF, VPL). Drivers missing from prefer
// are never selected.
func SelectContext(contexts []DecodeContext, format DataFormat, luid LUID, prefer []Driver) (DecodeContext, bool) {
	if prefer == nil {
		prefer = Drivers
	}
	for _, d := range prefer {
		for _, c := range contexts {
			if c.Driver != d || c.DataFormat != format {
				continue
			}
			if luid != 0 && c.LUID != luid {
				continue
			}
			return c, true
		}
	}
	return DecodeContext{}, false
}

// ParseDrivers converts driver names to a preference list, as used by
// SelectContext.
func ParseDrivers(names []string) ([]Driver, error) {
	out := make([]Driver, 0, len(names))
	for _, n := range names {
		d, err := ParseDriver(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
