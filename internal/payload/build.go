package payload

import "github.com/psanford/emissary/config"

// WebhookField always carries the destination URL.
const WebhookField = "webhook"

// Build assembles the payload for ch. The message goes under textField, or
// the channel's configured field when textField is empty. Members decoded
// from the channel's data fragment are merged last and win on collision.
func Build(ch *config.Channel, message, textField string) (Payload, []Skip, error) {
	if textField == "" {
		textField = ch.TextField
	}

	p := Payload{
		textField:    StringValue(message),
		WebhookField: StringValue(ch.Webhook),
	}

	if !ch.HasData {
		return p, nil, nil
	}

	extra, skipped, err := DecodeData(ch.Data)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range extra {
		p[k] = v
	}

	return p, skipped, nil
}
