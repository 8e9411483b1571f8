package quic

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/pkg/protocolids"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// peerIDExtensionOID 证书扩展中存放声明 PeerID 的 OID
var peerIDExtensionOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 53594, 1, 1}

// certValidity 证书有效期
const certValidity = 180 * 24 * time.Hour

// newTLSConfig 生成双向认证的 TLS 1.3 配置
//
// 服务端与客户端共用同一份配置。
func newTLSConfig(id *identity.Identity, agent string) (*tls.Config, error) {
	if id == nil {
		return nil, fmt.Errorf("identity is nil")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, fmt.Errorf("serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"kadugu"},
			CommonName:   agent,
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		ExtraExtensions: []pkix.Extension{{
			Id:    peerIDExtensionOID,
			Value: []byte(id.PeerID()),
		}},
	}

	priv := id.PrivateKey()
	der, err := x509.CreateCertificate(rand.Reader, template, template, priv.Public(), priv)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	// 自签名证书没有 CA 可验证，由 VerifyPeerCertificate 接管
	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  priv,
		}},
		NextProtos:            []string{protocolids.Proxy},
		InsecureSkipVerify:    true,
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: verifyPeerCertificate,
		MinVersion:            tls.VersionTLS13,
	}, nil
}

// verifyPeerCertificate 校验对端证书自洽
//
//  1. 恰好一张可解析的证书
//  2. 公钥为 ed25519
//  3. 自签名有效
//  4. 在有效期内
//  5. 带有可解析的 PeerID 扩展
func verifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoCertificate
	}
	if len(rawCerts) != 1 {
		return fmt.Errorf("%w: expected one certificate, got %d", ErrBadCertificate, len(rawCerts))
	}

	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadCertificate, err)
	}

	if _, ok := cert.PublicKey.(ed25519.PublicKey); !ok {
		return fmt.Errorf("%w: unsupported key type %T", ErrBadCertificate, cert.PublicKey)
	}
	if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
		return fmt.Errorf("%w: self signature: %v", ErrBadCertificate, err)
	}

	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return fmt.Errorf("%w: outside validity period [%v, %v]", ErrBadCertificate, cert.NotBefore, cert.NotAfter)
	}

	if _, err := claimedPeerID(cert); err != nil {
		return err
	}
	return nil
}

// claimedPeerID 从证书扩展中取出声明的 PeerID
func claimedPeerID(cert *x509.Certificate) (types.PeerID, error) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(peerIDExtensionOID) {
			id, err := types.ParsePeerID(string(ext.Value))
			if err != nil {
				return "", fmt.Errorf("%w: peer id extension: %v", ErrBadCertificate, err)
			}
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: missing peer id extension", ErrBadCertificate)
}

// peerInfo 握手得到的对端信息
type peerInfo struct {
	claimed   types.PeerID
	publicKey ed25519.PublicKey
	agent     string
}

// peerFromState 从 TLS 连接状态提取对端信息
func peerFromState(state tls.ConnectionState) (peerInfo, error) {
	if len(state.PeerCertificates) == 0 {
		return peerInfo{}, ErrNoCertificate
	}
	cert := state.PeerCertificates[0]

	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return peerInfo{}, fmt.Errorf("%w: unsupported key type %T", ErrBadCertificate, cert.PublicKey)
	}
	claimed, err := claimedPeerID(cert)
	if err != nil {
		return peerInfo{}, err
	}
	return peerInfo{claimed: claimed, publicKey: pub, agent: cert.Subject.CommonName}, nil
}
