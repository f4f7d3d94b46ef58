package formatter

// DescribeScore maps a sentiment score in [-1, 1] to a descriptive word
func DescribeScore(score float64) string {
	if score < -1 {
		score = -1
	} else if score > 1 {
		score = 1
	}

	// -1 becomes 0, +1 becomes len-1
	index := int((score + 1) / 2 * float64(len(scoreWords)-1) + 0.5)
	return scoreWords[index]
}

// scoreWords runs from the most negative to the most positive; the middle word is neutral
var scoreWords = []string{
	"devastated", "distressed", "upset", "frustrated", "disappointed",
	"worried", "uneasy", "cautious", "reserved",
	"neutral",
	"calm", "content", "cheerful", "happy", "glad",
	"excited", "joyful", "elated", "jubilant",
}
