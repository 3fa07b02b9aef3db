package piiscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4111111111111111"))
	assert.True(t, luhnValid("4111 1111 1111 1111"))
	assert.True(t, luhnValid("5500-0055-5555-5559"))
	assert.False(t, luhnValid("4111111111111112"))
	assert.False(t, luhnValid("not a number"))
	assert.False(t, luhnValid("1234"))
}

func TestSSNValid(t *testing.T) {
	assert.True(t, ssnValid("123-45-6789"))
	assert.False(t, ssnValid("000-45-6789"))
	assert.False(t, ssnValid("666-45-6789"))
	assert.False(t, ssnValid("900-45-6789"))
	assert.False(t, ssnValid("123-00-6789"))
	assert.False(t, ssnValid("123-45-0000"))
}

func TestPublicIPv4(t *testing.T) {
	assert.True(t, publicIPv4("203.0.113.9"))
	assert.True(t, publicIPv4("8.8.8.8"))
	assert.False(t, publicIPv4("10.0.0.1"))
	assert.False(t, publicIPv4("127.0.0.1"))
	assert.False(t, publicIPv4("172.16.9.1"))
	assert.False(t, publicIPv4("192.168.1.10"))
	assert.False(t, publicIPv4("169.254.0.5"))
	assert.False(t, publicIPv4("256.1.1.1"))
}

func TestRoutingValid(t *testing.T) {
	assert.True(t, routingValid("021000021"))
	assert.False(t, routingValid("123456789"))
	assert.False(t, routingValid("000000000"))
}

func TestIBANValid(t *testing.T) {
	assert.True(t, ibanValid("GB82WEST12345698765432"))
	assert.False(t, ibanValid("GB82WEST12345698765431"))
	assert.False(t, ibanValid("GB82"))
}
