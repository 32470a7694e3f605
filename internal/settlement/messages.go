package settlement

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"auction-house/internal/auction"
	"auction-house/internal/models"
	"auction-house/internal/notify"

	"github.com/shopspring/decimal"
)

var (
	winnerSubject = template.Must(template.New("winner_subject").Parse(
		`🎉 Congratulations! You won the auction for "{{.Item.Title}}"`))

	winnerBody = template.Must(template.New("winner_body").Parse(`Dear {{.Winner.Username}},

Congratulations! You have won the auction for "{{.Item.Title}}" with your bid of {{.Amount}}.

Please contact the seller ({{.Seller.Username}}) to arrange payment and delivery.

Seller's email: {{.Seller.Email}}

Thank you for using our auction platform!

Best regards,
The Auction Team`))

	sellerSubject = template.Must(template.New("seller_subject").Parse(
		`Your auction for "{{.Item.Title}}" has ended`))

	sellerBody = template.Must(template.New("seller_body").Parse(`Dear {{.Seller.Username}},

Your auction for "{{.Item.Title}}" has ended.

The winning bid was {{.Amount}} by {{.Winner.Username}}.

Winner's email: {{.Winner.Email}}

Please contact the winner to arrange payment and delivery.

Thank you for using our auction platform!

Best regards,
The Auction Team`))
)

type messageData struct {
	Item   models.Item
	Winner models.User
	Seller models.User
	Amount string
}

func newMessageData(item models.Item, winner, seller models.User, amount decimal.Decimal, currency string) messageData {
	return messageData{
		Item:   item,
		Winner: winner,
		Seller: seller,
		Amount: auction.FormatMoney(currency, amount),
	}
}

// winnerMessage tells the leader they won and how to reach the seller
func winnerMessage(d messageData) (notify.Message, error) {
	return render(d.Winner.Email, winnerSubject, winnerBody, d)
}

// sellerMessage tells the owner who won and how to reach them
func sellerMessage(d messageData) (notify.Message, error) {
	return render(d.Seller.Email, sellerSubject, sellerBody, d)
}

func render(to string, subject, body *template.Template, d messageData) (notify.Message, error) {
	var s, b bytes.Buffer
	if err := subject.Execute(&s, d); err != nil {
		return notify.Message{}, fmt.Errorf("render %s: %w", subject.Name(), err)
	}
	if err := body.Execute(&b, d); err != nil {
		return notify.Message{}, fmt.Errorf("render %s: %w", body.Name(), err)
	}
	return notify.Message{
		To:      to,
		Subject: strings.TrimSpace(s.String()),
		Body:    strings.TrimSpace(b.String()),
	}, nil
}
