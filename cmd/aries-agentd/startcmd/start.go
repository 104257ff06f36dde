/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package startcmd implements the start command of the agent daemon.
package startcmd

import (
	gocontext "context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hyperledger/aries-agent-go/pkg/controller"
	"github.com/hyperledger/aries-agent-go/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
	arieshttp "github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/http"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/ws"
	"github.com/hyperledger/aries-agent-go/pkg/framework/aries"
	"github.com/hyperledger/aries-agent-go/pkg/framework/aries/defaults"
	"github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
	"github.com/hyperledger/aries-agent-go/pkg/tenant"
)

const (
	// api host flag.
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "ARIESD_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	// api token flag.
	agentTokenFlagName      = "api-token"
	agentTokenEnvKey        = "ARIESD_API_TOKEN" // nolint:gosec
	agentTokenFlagShorthand = "t"
	agentTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agentTokenEnvKey

	// config file flag.
	configFileFlagName  = "config-file"
	configFileEnvKey    = "ARIESD_CONFIG_FILE"
	configFileFlagUsage = "YAML file with default values keyed by flag name." +
		" Flags and environment variables take precedence over its values." +
		" Alternatively, this can be set with the following environment variable: " + configFileEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "ARIESD_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database to use. Supported options: mem, leveldb. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databasePathFlagName      = "database-path"
	databasePathEnvKey        = "ARIESD_DATABASE_PATH"
	databasePathFlagShorthand = "v"
	databasePathFlagUsage     = "The directory of the leveldb databases. Tenant databases are kept below it." +
		" Not needed if using memstore." +
		" Alternatively, this can be set with the following environment variable: " + databasePathEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "ARIESD_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	// webhook url flag.
	agentWebhookFlagName      = "webhook-url"
	agentWebhookEnvKey        = "ARIESD_WEBHOOK_URL"
	agentWebhookFlagShorthand = "w"
	agentWebhookFlagUsage     = "URL to send notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + agentWebhookEnvKey

	// default label flag.
	agentDefaultLabelFlagName      = "agent-default-label"
	agentDefaultLabelEnvKey        = "ARIESD_DEFAULT_LABEL"
	agentDefaultLabelFlagShorthand = "l"
	agentDefaultLabelFlagUsage     = "Default Label for this agent. Defaults to aries-agent if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentDefaultLabelEnvKey

	// log level.
	agentLogLevelFlagName  = "log-level"
	agentLogLevelEnvKey    = "ARIESD_LOG_LEVEL"
	agentLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentLogLevelEnvKey

	// outbound transport flag.
	agentOutboundTransportFlagName      = "outbound-transport"
	agentOutboundTransportEnvKey        = "ARIESD_OUTBOUND_TRANSPORT"
	agentOutboundTransportFlagShorthand = "o"
	agentOutboundTransportFlagUsage     = "Outbound transport type." +
		" This flag can be repeated, allowing for multiple transports." +
		" Possible values [http] [ws]. Defaults to http if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentOutboundTransportEnvKey

	// outbound retries flags.
	agentOutboundRetriesFlagName  = "outbound-retries"
	agentOutboundRetriesEnvKey    = "ARIESD_OUTBOUND_RETRIES"
	agentOutboundRetriesFlagUsage = "Number of times an outbound message is retried." +
		" Alternatively, this can be set with the following environment variable: " + agentOutboundRetriesEnvKey

	agentOutboundRetryIntervalFlagName  = "outbound-retry-interval"
	agentOutboundRetryIntervalEnvKey    = "ARIESD_OUTBOUND_RETRY_INTERVAL"
	agentOutboundRetryIntervalFlagUsage = "Initial interval between outbound retries, e.g. 500ms." +
		" Alternatively, this can be set with the following environment variable: " +
		agentOutboundRetryIntervalEnvKey

	agentTLSCertFileFlagName      = "tls-cert-file"
	agentTLSCertFileEnvKey        = "TLS_CERT_FILE"
	agentTLSCertFileFlagShorthand = "c"
	agentTLSCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSCertFileEnvKey

	agentTLSKeyFileFlagName      = "tls-key-file"
	agentTLSKeyFileEnvKey        = "TLS_KEY_FILE"
	agentTLSKeyFileFlagShorthand = "k"
	agentTLSKeyFileFlagUsage     = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSKeyFileEnvKey

	// inbound host url flag.
	agentInboundHostFlagName      = "inbound-host"
	agentInboundHostEnvKey        = "ARIESD_INBOUND_HOST"
	agentInboundHostFlagShorthand = "i"
	agentInboundHostFlagUsage     = "Inbound Host Name:Port. This is used internally to start the inbound server." +
		" Values should be in `scheme@url` format, with scheme http or ws." +
		" Alternatively, this can be set with the following environment variable: " + agentInboundHostEnvKey

	// inbound host external url flag.
	agentInboundHostExternalFlagName      = "inbound-host-external"
	agentInboundHostExternalEnvKey        = "ARIESD_INBOUND_HOST_EXTERNAL"
	agentInboundHostExternalFlagShorthand = "e"
	agentInboundHostExternalFlagUsage     = "Inbound Host External URL." +
		" This is the endpoint of the agent as seen externally." +
		" If not provided, then the internal inbound host will be used here." +
		" Alternatively, this can be set with the following environment variable: " + agentInboundHostExternalEnvKey

	// auto accept flags.
	agentAutoAcceptFlagName  = "auto-accept"
	agentAutoAcceptEnvKey    = "ARIESD_AUTO_ACCEPT"
	agentAutoAcceptFlagUsage = "Auto accept connection invitations and requests." +
		" Possible values [true] [false]. Defaults to false if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentAutoAcceptEnvKey

	agentAutoAcceptCredentialsFlagName  = "auto-accept-credentials"
	agentAutoAcceptCredentialsEnvKey    = "ARIESD_AUTO_ACCEPT_CREDENTIALS"
	agentAutoAcceptCredentialsFlagUsage = "Auto accept policy of credential exchanges." +
		" Possible values [never] [contentApproved] [always]. Defaults to never if not set." +
		" Alternatively, this can be set with the following environment variable: " +
		agentAutoAcceptCredentialsEnvKey

	agentAutoAcceptProofsFlagName  = "auto-accept-proofs"
	agentAutoAcceptProofsEnvKey    = "ARIESD_AUTO_ACCEPT_PROOFS"
	agentAutoAcceptProofsFlagUsage = "Auto accept policy of proof exchanges." +
		" Possible values [never] [contentApproved] [always]. Defaults to never if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentAutoAcceptProofsEnvKey

	// tenant flags.
	tenantSessionLimitFlagName  = "tenant-session-limit"
	tenantSessionLimitEnvKey    = "ARIESD_TENANT_SESSION_LIMIT"
	tenantSessionLimitFlagUsage = "Maximum number of concurrent tenant sessions. Unlimited if not set." +
		" Alternatively, this can be set with the following environment variable: " + tenantSessionLimitEnvKey

	tenantAcquireTimeoutFlagName  = "tenant-acquire-timeout"
	tenantAcquireTimeoutEnvKey    = "ARIESD_TENANT_ACQUIRE_TIMEOUT"
	tenantAcquireTimeoutFlagUsage = "Maximum wait for a tenant session, e.g. 30s." +
		" Alternatively, this can be set with the following environment variable: " + tenantAcquireTimeoutEnvKey

	httpProtocol      = "http"
	websocketProtocol = "ws"

	databaseTypeMemOption     = "mem"
	databaseTypeLevelDBOption = "leveldb"

	rootDatabaseDir    = "root"
	tenantDatabasesDir = "tenants"
	storageProbe       = "ariesd"
)

var (
	errMissingHost = errors.New("host not provided")
	logger         = log.New("aries-agent/agentd")
)

type agentParameters struct {
	server                                   server
	host, defaultLabel                       string
	tlsCertFile, tlsKeyFile                  string
	token                                    string
	webhookURLs, outboundTransports          []string
	inboundHostInternal, inboundHostExternal string
	autoAccept                               bool
	autoAcceptCredentials, autoAcceptProofs  exchange.AutoAccept
	outboundRetries                          *uint64
	outboundRetryInterval                    time.Duration
	tenantSessionLimit                       int64
	tenantAcquireTimeout                     time.Duration
	dbParam                                  *dbParam
}

type dbParam struct {
	dbType  string
	path    string
	timeout uint64
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(path string) (storage.Provider, error){
	databaseTypeMemOption: func(_ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeLevelDBOption: func(path string) (storage.Provider, error) {
		if path == "" {
			return nil, errors.New("leveldb requires a database path")
		}

		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, err
		}

		return leveldb.NewProvider(filepath.Join(path, rootDatabaseDir)), nil
	},
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router) // nolint:gosec
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an agent",
		Long:  `Start an Aries agent controller`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSettings(cmd)
			if err != nil {
				return err
			}

			// log level
			logLevel, err := s.get(agentLogLevelFlagName, agentLogLevelEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogLevel(logLevel)
			if err != nil {
				return err
			}

			parameters, err := newAgentParameters(server, s)
			if err != nil {
				return err
			}

			return startAgent(parameters)
		},
	}
}

func newAgentParameters(server server, s *settings) (*agentParameters, error) { // nolint:funlen,gocyclo
	host, err := s.get(agentHostFlagName, agentHostEnvKey, false)
	if err != nil {
		return nil, err
	}

	token, err := s.get(agentTokenFlagName, agentTokenEnvKey, true)
	if err != nil {
		return nil, err
	}

	inboundHost, err := s.get(agentInboundHostFlagName, agentInboundHostEnvKey, true)
	if err != nil {
		return nil, err
	}

	inboundHostExternal, err := s.get(agentInboundHostExternalFlagName, agentInboundHostExternalEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbParam, err := getDBParam(s)
	if err != nil {
		return nil, err
	}

	defaultLabel, err := s.get(agentDefaultLabelFlagName, agentDefaultLabelEnvKey, true)
	if err != nil {
		return nil, err
	}

	autoAccept, err := getBool(s, agentAutoAcceptFlagName, agentAutoAcceptEnvKey)
	if err != nil {
		return nil, err
	}

	autoAcceptCredentials, err := getAutoAcceptPolicy(s, agentAutoAcceptCredentialsFlagName,
		agentAutoAcceptCredentialsEnvKey)
	if err != nil {
		return nil, err
	}

	autoAcceptProofs, err := getAutoAcceptPolicy(s, agentAutoAcceptProofsFlagName, agentAutoAcceptProofsEnvKey)
	if err != nil {
		return nil, err
	}

	webhookURLs, err := s.getAll(agentWebhookFlagName, agentWebhookEnvKey, true)
	if err != nil {
		return nil, err
	}

	outboundTransports, err := s.getAll(agentOutboundTransportFlagName, agentOutboundTransportEnvKey, true)
	if err != nil {
		return nil, err
	}

	tlsCertFile, err := s.get(agentTLSCertFileFlagName, agentTLSCertFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	tlsKeyFile, err := s.get(agentTLSKeyFileFlagName, agentTLSKeyFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	parameters := &agentParameters{
		server:                server,
		host:                  host,
		token:                 token,
		inboundHostInternal:   inboundHost,
		inboundHostExternal:   inboundHostExternal,
		dbParam:               dbParam,
		defaultLabel:          defaultLabel,
		webhookURLs:           nonEmpty(webhookURLs),
		outboundTransports:    nonEmpty(outboundTransports),
		autoAccept:            autoAccept,
		autoAcceptCredentials: autoAcceptCredentials,
		autoAcceptProofs:      autoAcceptProofs,
		tlsCertFile:           tlsCertFile,
		tlsKeyFile:            tlsKeyFile,
	}

	if err := getRetryParams(s, parameters); err != nil {
		return nil, err
	}

	if err := getTenantParams(s, parameters); err != nil {
		return nil, err
	}

	return parameters, nil
}

func getDBParam(s *settings) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = s.get(databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.path, err = s.get(databasePathFlagName, databasePathEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := s.get(databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" || dbTimeout == "0" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db timeout %s: %w", dbTimeout, err)
	}

	dbParam.timeout = uint64(t)

	return dbParam, nil
}

func getBool(s *settings, flagName, envKey string) (bool, error) {
	v, err := s.get(flagName, envKey, true)
	if err != nil {
		return false, err
	}

	if v == "" {
		return false, nil
	}

	return strconv.ParseBool(v)
}

func getAutoAcceptPolicy(s *settings, flagName, envKey string) (exchange.AutoAccept, error) {
	v, err := s.get(flagName, envKey, true)
	if err != nil {
		return "", err
	}

	policy, err := exchange.ParseAutoAccept(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", flagName, err)
	}

	return policy, nil
}

func getDuration(s *settings, flagName, envKey string) (time.Duration, error) {
	v, err := s.get(flagName, envKey, true)
	if err != nil || v == "" {
		return 0, err
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %s: %w", flagName, v, err)
	}

	return d, nil
}

func getRetryParams(s *settings, parameters *agentParameters) error {
	retries, err := s.get(agentOutboundRetriesFlagName, agentOutboundRetriesEnvKey, true)
	if err != nil {
		return err
	}

	if retries != "" {
		n, err := strconv.ParseUint(retries, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse %s %s: %w", agentOutboundRetriesFlagName, retries, err)
		}

		parameters.outboundRetries = &n
	}

	parameters.outboundRetryInterval, err = getDuration(s, agentOutboundRetryIntervalFlagName,
		agentOutboundRetryIntervalEnvKey)

	return err
}

func getTenantParams(s *settings, parameters *agentParameters) error {
	limit, err := s.get(tenantSessionLimitFlagName, tenantSessionLimitEnvKey, true)
	if err != nil {
		return err
	}

	if limit != "" {
		parameters.tenantSessionLimit, err = strconv.ParseInt(limit, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse %s %s: %w", tenantSessionLimitFlagName, limit, err)
		}
	}

	parameters.tenantAcquireTimeout, err = getDuration(s, tenantAcquireTimeoutFlagName, tenantAcquireTimeoutEnvKey)

	return err
}

func nonEmpty(values []string) []string {
	var result []string

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}

	return result
}

func createFlags(startCmd *cobra.Command) {
	// agent host flag
	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)

	// agent token flag
	startCmd.Flags().StringP(agentTokenFlagName, agentTokenFlagShorthand, "", agentTokenFlagUsage)

	// config file flag
	startCmd.Flags().StringP(configFileFlagName, "", "", configFileFlagUsage)

	// inbound host flag
	startCmd.Flags().StringP(agentInboundHostFlagName, agentInboundHostFlagShorthand, "", agentInboundHostFlagUsage)

	// inbound external host flag
	startCmd.Flags().StringP(agentInboundHostExternalFlagName, agentInboundHostExternalFlagShorthand, "",
		agentInboundHostExternalFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// db path
	startCmd.Flags().StringP(databasePathFlagName, databasePathFlagShorthand, "", databasePathFlagUsage)

	// db timeout
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(agentWebhookFlagName, agentWebhookFlagShorthand, []string{}, agentWebhookFlagUsage)

	// log level
	startCmd.Flags().StringP(agentLogLevelFlagName, "", "", agentLogLevelFlagUsage)

	// agent default label flag
	startCmd.Flags().StringP(agentDefaultLabelFlagName, agentDefaultLabelFlagShorthand, "",
		agentDefaultLabelFlagUsage)

	// agent outbound transport flag
	startCmd.Flags().StringSliceP(agentOutboundTransportFlagName, agentOutboundTransportFlagShorthand, []string{},
		agentOutboundTransportFlagUsage)

	// outbound retries
	startCmd.Flags().StringP(agentOutboundRetriesFlagName, "", "", agentOutboundRetriesFlagUsage)
	startCmd.Flags().StringP(agentOutboundRetryIntervalFlagName, "", "", agentOutboundRetryIntervalFlagUsage)

	// auto accept flags
	startCmd.Flags().StringP(agentAutoAcceptFlagName, "", "", agentAutoAcceptFlagUsage)
	startCmd.Flags().StringP(agentAutoAcceptCredentialsFlagName, "", "", agentAutoAcceptCredentialsFlagUsage)
	startCmd.Flags().StringP(agentAutoAcceptProofsFlagName, "", "", agentAutoAcceptProofsFlagUsage)

	// tenant flags
	startCmd.Flags().StringP(tenantSessionLimitFlagName, "", "", tenantSessionLimitFlagUsage)
	startCmd.Flags().StringP(tenantAcquireTimeoutFlagName, "", "", tenantAcquireTimeoutFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(agentTLSCertFileFlagName,
		agentTLSCertFileFlagShorthand, "", agentTLSCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(agentTLSKeyFileFlagName,
		agentTLSKeyFileFlagShorthand, "", agentTLSKeyFileFlagUsage)
}

func setLogLevel(logLevel string) error {
	if logLevel == "" {
		logLevel = "INFO"
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
	}

	log.SetLevel("", level)

	logger.Infof("logger level set to %s", logLevel)

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

// agent is a running framework with its controller API and DIDComm inbound handlers.
type agent struct {
	framework  *aries.Aries
	controller *controller.Controller
	api        http.Handler
	inbound    http.Handler
}

func (a *agent) Close() error {
	a.controller.Close()

	return a.framework.Close()
}

func startAgent(parameters *agentParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	a, err := newAgent(parameters)
	if err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			logger.Warnf("failed to close aries agent: %s", err)
		}
	}()

	g := new(errgroup.Group)

	g.Go(func() error {
		logger.Infof("Starting aries agent rest on host [%s]", parameters.host)

		err := parameters.server.ListenAndServe(parameters.host, a.api, parameters.tlsCertFile, parameters.tlsKeyFile)
		if err != nil {
			return fmt.Errorf("failed to start aries agent rest on port [%s], cause:  %w", parameters.host, err)
		}

		return nil
	})

	if a.inbound != nil {
		_, inboundHost, _ := parseInboundHost(parameters.inboundHostInternal) // nolint:errcheck

		g.Go(func() error {
			logger.Infof("Starting didcomm inbound on host [%s]", inboundHost)

			err := parameters.server.ListenAndServe(inboundHost, a.inbound, parameters.tlsCertFile,
				parameters.tlsKeyFile)
			if err != nil {
				return fmt.Errorf("failed to start didcomm inbound on port [%s], cause:  %w", inboundHost, err)
			}

			return nil
		})
	}

	return g.Wait()
}

func newAgent(parameters *agentParameters) (*agent, error) {
	framework, err := createAriesAgent(parameters)
	if err != nil {
		return nil, err
	}

	a := &agent{framework: framework}

	if err = a.init(parameters); err != nil {
		if closeErr := framework.Close(); closeErr != nil {
			logger.Warnf("failed to close aries agent: %s", closeErr)
		}

		return nil, err
	}

	return a, nil
}

func (a *agent) init(parameters *agentParameters) error {
	ctx, err := a.framework.Context()
	if err != nil {
		return fmt.Errorf("failed to start aries agent rest on port [%s], failed to get aries context : %w",
			parameters.host, err)
	}

	a.controller, err = controller.New(ctx,
		controller.WithWebhookURLs(parameters.webhookURLs...),
		controller.WithWebhookOptions(webnotifier.WithRetries(webhookRetries, webhookRetryInterval)),
		controller.WithTenants(a.framework.Tenants()))
	if err != nil {
		return fmt.Errorf("failed to start aries agent rest on port [%s], failed to get rest service api :  %w",
			parameters.host, err)
	}

	a.api = newAPIHandler(a.controller, parameters.token)

	if parameters.inboundHostInternal == "" {
		return nil
	}

	scheme, _, err := parseInboundHost(parameters.inboundHostInternal)
	if err != nil {
		return err
	}

	a.inbound, err = newInboundHandler(scheme, ctx.InboundMessageHandler(), a.framework.Tenants())

	return err
}

const (
	webhookRetries       = 3
	webhookRetryInterval = 500 * time.Millisecond
)

func newAPIHandler(c *controller.Controller, token string) http.Handler {
	router := mux.NewRouter()

	if token != "" {
		router.Use(authorizationMiddleware(token))
	}

	for _, handler := range c.GetRESTHandlers() {
		router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	return cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)
}

// newInboundHandler serves the root agent at / and every tenant agent at /tenant/{id}.
func newInboundHandler(scheme string, root transport.InboundMessageHandler,
	tenants *tenant.Client[*context.Provider]) (http.Handler, error) {
	newHandler := arieshttp.NewInboundHandler
	if scheme == websocketProtocol {
		newHandler = ws.NewInboundHandler
	}

	rootHandler, err := newHandler(root)
	if err != nil {
		return nil, fmt.Errorf("%s inbound transport initialization failed: %w", scheme, err)
	}

	router := mux.NewRouter()
	router.Handle("/", rootHandler)
	router.HandleFunc(aries.TenantPathPrefix+"{id}", func(w http.ResponseWriter, r *http.Request) {
		tenantID := mux.Vars(r)["id"]

		// envelopes are processed after the response is sent, unknown tenants are refused first.
		if _, err := tenants.GetTenant(tenantID); err != nil {
			if record.IsNotFound(err) {
				http.Error(w, fmt.Sprintf("unknown tenant %s", tenantID), http.StatusNotFound)

				return
			}

			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		handler, err := newHandler(func(ctx gocontext.Context, envelope []byte) error {
			return tenants.WithTenantAgent(ctx, tenantID, func(agent *context.Provider) error {
				return agent.InboundMessageHandler()(ctx, envelope)
			})
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		handler.ServeHTTP(w, r)
	})

	return router, nil
}

func parseInboundHost(schemeHost string) (string, string, error) {
	const validSliceLen = 2

	parts := strings.SplitN(schemeHost, "@", validSliceLen)
	if len(parts) != validSliceLen || parts[1] == "" {
		return "", "", fmt.Errorf("invalid inbound host option: Use scheme@url to pass the option")
	}

	switch parts[0] {
	case httpProtocol, websocketProtocol:
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("inbound transport [%s] not supported", parts[0])
	}
}

func getInboundEndpoint(internal, external string) (string, error) {
	if external != "" {
		return external, nil
	}

	if internal == "" {
		return "", nil
	}

	scheme, host, err := parseInboundHost(internal)
	if err != nil {
		return "", fmt.Errorf("inbound internal host : %w", err)
	}

	return scheme + "://" + host, nil
}

func getOutboundTransportOpts(outboundTransports []string) ([]aries.Option, error) {
	var opts []aries.Option

	var transports []transport.OutboundTransport

	for _, outboundTransport := range outboundTransports {
		switch outboundTransport {
		case httpProtocol:
			outbound, err := arieshttp.NewOutbound(arieshttp.WithOutboundHTTPClient(&http.Client{}))
			if err != nil {
				return nil, fmt.Errorf("http outbound transport initialization failed: %w", err)
			}

			transports = append(transports, outbound)
		case websocketProtocol:
			transports = append(transports, ws.NewOutbound())
		default:
			return nil, fmt.Errorf("outbound transport [%s] not supported", outboundTransport)
		}
	}

	if len(transports) > 0 {
		opts = append(opts, aries.WithOutboundTransports(transports...))
	}

	return opts, nil
}

func createAriesAgent(parameters *agentParameters) (*aries.Aries, error) {
	var opts []aries.Option

	storePro, err := createStoreProviders(parameters)
	if err != nil {
		return nil, err
	}

	opts = append(opts, aries.WithStoreProvider(storePro))

	if parameters.dbParam.dbType == databaseTypeLevelDBOption {
		opts = append(opts, defaults.WithTenantStorePath(filepath.Join(parameters.dbParam.path, tenantDatabasesDir)))
	}

	if parameters.defaultLabel != "" {
		opts = append(opts, aries.WithLabel(parameters.defaultLabel))
	}

	endpoint, err := getInboundEndpoint(parameters.inboundHostInternal, parameters.inboundHostExternal)
	if err != nil {
		return nil, fmt.Errorf("failed to start aries agent rest on port [%s], failed to inbound tranpsort opt : %w",
			parameters.host, err)
	}

	if endpoint != "" {
		opts = append(opts, aries.WithEndpoint(endpoint))
	}

	outboundTransportOpts, err := getOutboundTransportOpts(parameters.outboundTransports)
	if err != nil {
		return nil, fmt.Errorf("failed to start aries agent rest on port [%s], failed to outbound transport opts : %w",
			parameters.host, err)
	}

	opts = append(opts, outboundTransportOpts...)
	opts = append(opts,
		aries.WithAutoAcceptConnections(parameters.autoAccept),
		aries.WithAutoAccept(parameters.autoAcceptCredentials, parameters.autoAcceptProofs),
		aries.WithTenantOptions(tenantOptions(parameters)...))

	if parameters.outboundRetries != nil {
		opts = append(opts, aries.WithOutboundRetries(*parameters.outboundRetries, parameters.outboundRetryInterval))
	}

	framework, err := aries.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start aries agent rest on port [%s], failed to initialize framework :  %w",
			parameters.host, err)
	}

	return framework, nil
}

func tenantOptions(parameters *agentParameters) []tenant.Option {
	var opts []tenant.Option

	if parameters.tenantSessionLimit > 0 {
		opts = append(opts, tenant.WithSessionLimit(parameters.tenantSessionLimit))
	}

	if parameters.tenantAcquireTimeout > 0 {
		opts = append(opts, tenant.WithSessionAcquireTimeout(parameters.tenantAcquireTimeout))
	}

	return opts
}

func createStoreProviders(parameters *agentParameters) (storage.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("key database type not set to a valid type." +
			" run start --help to see the available options")
	}

	var store storage.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error

			store, openErr = provider(parameters.dbParam.path)
			if openErr != nil {
				return openErr
			}

			_, openErr = store.OpenStore(storageProbe)

			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage at %s : %w", parameters.dbParam.path, err)
	}

	return store, nil
}
