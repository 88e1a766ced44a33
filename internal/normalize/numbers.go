package normalize

import "strconv"

var (
	unitWords = map[string]int{
		"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
		"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	}
	teenWords = map[string]int{
		"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
		"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	}
	tensWords = map[string]int{
		"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
		"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	}
	ordinalWords = map[string]int{
		"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
		"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
		"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
		"fifteenth": 15, "sixteenth": 16, "seventeenth": 17, "eighteenth": 18,
		"nineteenth": 19, "twentieth": 20, "thirtieth": 30,
	}
	monthWords = map[string]bool{
		"january": true, "february": true, "march": true, "april": true,
		"may": true, "june": true, "july": true, "august": true,
		"september": true, "october": true, "november": true, "december": true,
	}
	// quantityCues follow a lone digit word that is meant as a number.
	quantityCues = map[string]bool{
		"am": true, "pm": true, "a.m": true, "p.m": true, "o'clock": true,
		"minute": true, "minutes": true, "hour": true, "hours": true,
		"day": true, "days": true, "week": true, "weeks": true,
		"month": true, "months": true, "year": true, "years": true,
		"percent": true, "dollars": true, "euros": true, "pounds": true,
		"people": true, "pages": true, "copies": true,
	}
	clockCues = map[string]bool{"am": true, "pm": true, "a.m": true, "p.m": true}

	// dateLeads precede a month name used as a date ("on may fifth").
	dateLeads = map[string]bool{
		"on": true, "in": true, "by": true, "until": true, "till": true, "before": true,
		"after": true, "since": true, "from": true, "of": true, "next": true, "last": true,
		"this": true, "early": true, "mid": true, "late": true, "due": true,
	}
)

// monthBefore reports whether the number spanning toks[i:end] is a day of the
// month named just before it. "may" is also a verb, so it only counts after a
// date lead ("on may fifth") or when the day closes the clause ("see you may
// fifth"); "you may first check" is left alone.
func monthBefore(toks []token, i, end int) bool {
	k := i - 1
	if k < 0 || toks[k].trail != "" || !monthWords[toks[k].word] {
		return false
	}
	if toks[k].word != "may" {
		return true
	}
	if k > 0 && dateLeads[toks[k-1].word] {
		return true
	}
	return end >= len(toks) || toks[end-1].trail != ""
}

// convertNumbers rewrites number words as digits where the reading is not
// ambiguous: compounds ("twenty five", "three hundred"), teens and tens, lone
// digit words before a unit or after "at" or a month, clock times
// ("two thirty pm") and ordinals after a month ("march third").
func convertNumbers(toks []token) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); {
		if day, n := parseOrdinal(toks, i); n > 0 && monthBefore(toks, i, i+n) {
			out = append(out, merged(toks, i, n, strconv.Itoa(day)))
			i += n
			continue
		}

		val, n, strong := parseCardinal(toks, i)
		if n == 0 {
			out = append(out, toks[i])
			i++
			continue
		}

		end := i + n
		if hour, minute, m := parseClock(toks, i, val, n); m > 0 {
			out = append(out, merged(toks, i, m, strconv.Itoa(hour)+":"+twoDigits(minute)))
			i += m
			continue
		}

		if !strong && !cued(toks, i, end) {
			out = append(out, toks[i:end]...)
			i = end
			continue
		}
		out = append(out, merged(toks, i, n, strconv.Itoa(val)))
		i = end
	}
	return out
}

func merged(toks []token, i, n int, word string) token {
	return token{word: word, trail: toks[i+n-1].trail}
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// cued reports whether a lone digit word spanning [i, end) reads as a number.
func cued(toks []token, i, end int) bool {
	if end < len(toks) && toks[end-1].trail == "" && quantityCues[toks[end].word] {
		return true
	}
	if i > 0 && toks[i-1].trail == "" && toks[i-1].word == "at" {
		return true
	}
	return monthBefore(toks, i, end)
}

// joined reports whether toks[k] continues the phrase ending at toks[k-1].
func joined(toks []token, k int) bool {
	return k < len(toks) && toks[k-1].trail == ""
}

// parseBelowHundred reads one of: tens [unit], teen, unit.
func parseBelowHundred(toks []token, i int) (val, n int, strong bool) {
	if i >= len(toks) {
		return 0, 0, false
	}
	w := toks[i].word
	if v, ok := tensWords[w]; ok {
		if joined(toks, i+1) {
			if u, ok := unitWords[toks[i+1].word]; ok && u > 0 {
				return v + u, 2, true
			}
		}
		return v, 1, true
	}
	if v, ok := teenWords[w]; ok {
		return v, 1, true
	}
	if v, ok := unitWords[w]; ok {
		return v, 1, false
	}
	return 0, 0, false
}

// parseCardinal reads a number below one thousand starting at toks[i].
// strong reports that the words cannot be anything but a number.
func parseCardinal(toks []token, i int) (val, n int, strong bool) {
	val, n, strong = parseBelowHundred(toks, i)
	if n == 0 {
		return 0, 0, false
	}
	j := i + n
	if val == 0 || val >= 10 || !joined(toks, j) || toks[j].word != "hundred" {
		return val, n, strong
	}

	val *= 100
	j++
	k := j
	if joined(toks, k) && toks[k].word == "and" {
		k++
	}
	if joined(toks, k) {
		if rest, m, _ := parseBelowHundred(toks, k); m > 0 {
			val += rest
			j = k + m
		}
	}
	return val, j - i, true
}

// parseClock recognizes "<hour> <minutes> am|pm" where the hour group spans
// toks[i:i+n]. It returns the number of tokens making up the hour and minutes;
// the am/pm cue itself is left in place.
func parseClock(toks []token, i, hour, n int) (int, int, int) {
	if hour < 1 || hour > 12 {
		return 0, 0, 0
	}
	j := i + n
	if !joined(toks, j) {
		return 0, 0, 0
	}
	minute, m, _ := parseBelowHundred(toks, j)
	if m == 0 || minute < 10 || minute > 59 {
		return 0, 0, 0
	}
	cue := j + m
	if !joined(toks, cue) || !clockCues[toks[cue].word] {
		return 0, 0, 0
	}
	return hour, minute, n + m
}

// parseOrdinal reads "third", "twentieth" or "twenty first".
func parseOrdinal(toks []token, i int) (int, int) {
	w := toks[i].word
	if v, ok := ordinalWords[w]; ok {
		return v, 1
	}
	if v, ok := tensWords[w]; ok && v <= 30 && joined(toks, i+1) {
		if o, ok := ordinalWords[toks[i+1].word]; ok && o < 10 {
			if v+o <= 31 {
				return v + o, 2
			}
		}
	}
	return 0, 0
}
