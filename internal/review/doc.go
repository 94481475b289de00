// Package review maps a model's classification of an image onto four policy
// verdicts and, when all of them pass, stock catalogue metadata.
package review
