package rtedoc

// Equal reports structural equality between two documents: same block
// sequence, identical text, identical mark sets per run, identical heading
// levels. The round-trip rule keys off this comparison, so it must not be
// looser than what the serializer can reproduce.
func (d *Doc) Equal(other *Doc) bool {
	if d == nil || other == nil {
		return d.BlockCount() == 0 && other.BlockCount() == 0
	}
	return blocksEqual(d.Blocks, other.Blocks)
}

func blocksEqual(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !blockEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func blockEqual(a, b Block) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindHeading:
		if a.Level != b.Level {
			return false
		}
		return inlinesEqual(a.Inlines, b.Inlines)
	case KindParagraph:
		return inlinesEqual(a.Inlines, b.Inlines)
	case KindList:
		if a.Ordered != b.Ordered || a.Start != b.Start || len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !blocksEqual(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindQuote:
		return blocksEqual(a.Children, b.Children)
	case KindCodeFence:
		return a.Language == b.Language && a.Literal == b.Literal
	default:
		return a.Literal == b.Literal
	}
}

func inlinesEqual(a, b []Inline) bool {
	an := normalizeInlines(a)
	bn := normalizeInlines(b)
	if len(an) != len(bn) {
		return false
	}
	for i := range an {
		if !inlineEqual(an[i], bn[i]) {
			return false
		}
	}
	return true
}

func inlineEqual(a, b Inline) bool {
	if a.HardBreak != b.HardBreak {
		return false
	}
	if (a.Image == nil) != (b.Image == nil) {
		return false
	}
	if a.Image != nil {
		return *a.Image == *b.Image
	}
	return a.Text == b.Text &&
		a.Bold == b.Bold && a.Italic == b.Italic &&
		a.Strike == b.Strike && a.Code == b.Code &&
		a.Link == b.Link && a.LinkTitle == b.LinkTitle
}

// normalizeInlines merges adjacent runs carrying identical marks and drops
// empty text runs so that editors splitting runs differently still compare
// equal.
func normalizeInlines(runs []Inline) []Inline {
	out := make([]Inline, 0, len(runs))
	for _, r := range runs {
		if r.Image == nil && !r.HardBreak && r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && mergeable(out[n-1], r) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

func mergeable(a, b Inline) bool {
	if a.Image != nil || b.Image != nil || a.HardBreak || b.HardBreak {
		return false
	}
	return a.Bold == b.Bold && a.Italic == b.Italic &&
		a.Strike == b.Strike && a.Code == b.Code &&
		a.Link == b.Link && a.LinkTitle == b.LinkTitle
}
