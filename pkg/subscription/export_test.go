package subscription

var ParsePaddlePayload = parsePaddlePayload
