package syllable

import (
	"regexp"
	"strings"
)

// Heuristic estimates syllables from vowel groups with English suffix and
// prefix adjustments.
type Heuristic struct{}

var (
	reConsonants = regexp.MustCompile(`^[bcdfghjklmnpqrstvwxz]+$`)
	reDigits     = regexp.MustCompile(`^-?[0-9]+$`)
	reVowelPair  = regexp.MustCompile(`[aeiou][aeiou]`)
	reVowelTrio  = regexp.MustCompile(`[aeiou][aeiou][aeiou]`)
	reVowelCons  = regexp.MustCompile(`[aeiou][^aeiou]`)
	reVowel      = regexp.MustCompile(`[aeiou]`)
)

var (
	coOne = []string{"cool", "coach", "coat", "coal", "count", "coin", "coarse", "coup", "coif", "cook", "coign", "coiffe", "coof", "court"}
	coTwo = []string{"coapt", "coed", "coinci"}

	leExcept = map[string]bool{
		"whole": true, "mobile": true, "pole": true, "male": true, "female": true, "hale": true,
		"pale": true, "tale": true, "sale": true, "aisle": true, "whale": true, "while": true,
	}
	negatives = map[string]bool{
		"doesn't": true, "isn't": true, "shouldn't": true, "couldn't": true, "wouldn't": true,
	}
)

func (Heuristic) Count(word string) int {
	word = strings.ToLower(word)
	if word == "" {
		return 0
	}

	// Repeated letter runs such as "aaaa" or "zzz".
	if repeated(word) {
		switch {
		case strings.ContainsRune("aeiou", rune(word[0])):
			return 1
		case word[0] == 'w':
			return 3 * len(word)
		default:
			return len(word)
		}
	}
	// Spelled out initialisms.
	if reConsonants.MatchString(word) {
		return len(word) + 2*strings.Count(word, "w")
	}
	if reDigits.MatchString(word) {
		n := number(strings.TrimPrefix(word, "-"))
		if strings.HasPrefix(word, "-") {
			n += 2
		}
		return n
	}
	return estimate(word)
}

func repeated(w string) bool {
	for i := 1; i < len(w); i++ {
		if w[i] != w[0] {
			return false
		}
	}
	return w[0] >= 'a' && w[0] <= 'z'
}

func hasPrefixAny(w string, list []string) bool {
	for _, p := range list {
		if strings.HasPrefix(w, p) {
			return true
		}
	}
	return false
}

func isVowel(b byte) bool { return strings.IndexByte("aeiou", b) >= 0 }

func estimate(word string) int {
	negative := negatives[word]
	word = strings.ReplaceAll(word, "'", "")
	if len(word) <= 3 {
		return 1
	}

	syls, disc := 0, 0

	if strings.HasSuffix(word, "es") || strings.HasSuffix(word, "ed") {
		pairs := len(reVowelPair.FindAllString(word, -1))
		if pairs > 1 || len(reVowelCons.FindAllString(word, -1)) > 1 {
			switch word[len(word)-3:] {
			case "ted", "tes", "ses", "ied", "ies":
			default:
				disc++
			}
		}
	}

	if strings.HasSuffix(word, "e") && !(strings.HasSuffix(word, "le") && !leExcept[word]) {
		disc++
	}

	disc += len(reVowelPair.FindAllString(word, -1)) + len(reVowelTrio.FindAllString(word, -1))
	vowels := len(reVowel.FindAllString(word, -1))

	if strings.HasPrefix(word, "mc") {
		syls++
	}
	if word[len(word)-1] == 'y' && !isVowel(word[len(word)-2]) {
		syls++
	}
	for i := 1; i < len(word)-1; i++ {
		if word[i] == 'y' && !isVowel(word[i-1]) && !isVowel(word[i+1]) {
			syls++
		}
	}
	if strings.HasPrefix(word, "tri") && isVowel(word[3]) {
		syls++
	}
	if strings.HasPrefix(word, "bi") && isVowel(word[2]) {
		syls++
	}
	if strings.HasSuffix(word, "ian") && !strings.HasSuffix(word, "cian") && !strings.HasSuffix(word, "tian") {
		syls++
	}
	if strings.HasPrefix(word, "co") && isVowel(word[2]) {
		if hasPrefixAny(word, coTwo) || !hasPrefixAny(word, coOne) {
			syls++
		}
	}
	if strings.HasPrefix(word, "pre") && isVowel(word[3]) && !strings.HasPrefix(word, "preach") {
		syls++
	}
	if negative {
		syls++
	}

	n := vowels - disc + syls
	if n < 1 {
		n = 1
	}
	return n
}

// digitSyllables is the spoken length of a single digit.
var digitSyllables = map[byte]int{
	'0': 2, '1': 1, '2': 1, '3': 1, '4': 1, '5': 1, '6': 1, '7': 2, '8': 1, '9': 1,
}

// number approximates the spoken syllables of a digit string read digit by digit
// with "hundred" and "thousand" style groupings collapsed.
func number(num string) int {
	switch num {
	case "10", "12":
		return 1
	case "0", "00":
		return 2
	case "11":
		return 3
	}
	n := 0
	for i := 0; i < len(num); i++ {
		if num[i] == '0' && len(num) > 1 {
			continue
		}
		n += digitSyllables[num[i]]
	}
	// "hundred", "thousand" and friends.
	if len(num) >= 3 {
		n += 2 * ((len(num) - 1) / 3)
	}
	if n == 0 {
		n = 1
	}
	return n
}
